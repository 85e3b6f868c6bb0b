package dto

// AnalyticsDTO - сводная аналитика за период
type AnalyticsDTO struct {
	Period     string             `json:"period"`
	Tickets    TicketStatsDTO     `json:"tickets"`
	TestCases  TestCaseStatsDTO   `json:"testCases"`
	Users      UserStatsDTO       `json:"users"`
	Activities ActivityStatsDTO   `json:"activities"`
	Metrics    PerformanceStatDTO `json:"metrics"`
}

type TicketStatsDTO struct {
	Total           int            `json:"total"`
	Open            int            `json:"open"`
	InProgress      int            `json:"inProgress"`
	Resolved        int            `json:"resolved"`
	Closed          int            `json:"closed"`
	ByPriority      map[string]int `json:"byPriority"`
	ByCategory      map[string]int `json:"byCategory"`
	RecentlyCreated int            `json:"recentlyCreated"`
}

type TestCaseStatsDTO struct {
	Total            int            `json:"total"`
	Pending          int            `json:"pending"`
	Passed           int            `json:"passed"`
	Failed           int            `json:"failed"`
	Blocked          int            `json:"blocked"`
	ByPriority       map[string]int `json:"byPriority"`
	RecentlyCreated  int            `json:"recentlyCreated"`
	ExecutedInPeriod int            `json:"executedInPeriod"`
}

type UserStatsDTO struct {
	Total  int            `json:"total"`
	Active int            `json:"active"`
	ByRole map[string]int `json:"byRole"`
}

type ActivityStatsDTO struct {
	TotalInPeriod int            `json:"totalInPeriod"`
	ByAction      map[string]int `json:"byAction"`
}

type PerformanceStatDTO struct {
	OverallPassRate        float64 `json:"overallPassRate"`
	AvgResolutionTimeHours float64 `json:"avgResolutionTimeHours"`
	TicketVelocity         int     `json:"ticketVelocity"`
	TestExecutionRate      int     `json:"testExecutionRate"`
}
