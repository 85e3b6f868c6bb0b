package valueobject

import "errors"

var (
	ErrInvalidTicketStatus   = errors.New("invalid ticket status")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrInvalidTestCaseStatus = errors.New("invalid test case status")
	ErrInvalidSuiteStatus    = errors.New("invalid test suite status")
)

// TicketStatus - статус тикета
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in-progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Validate() error {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return nil
	default:
		return ErrInvalidTicketStatus
	}
}

// Priority - приоритет тикета или тест-кейса
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return nil
	default:
		return ErrInvalidPriority
	}
}

// AllPriorities возвращает приоритеты от высшего к низшему
func AllPriorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Category - категория тикета
type Category string

const (
	CategoryBug         Category = "bug"
	CategoryFeature     Category = "feature"
	CategorySupport     Category = "support"
	CategoryEnhancement Category = "enhancement"
)

func (c Category) Validate() error {
	switch c {
	case CategoryBug, CategoryFeature, CategorySupport, CategoryEnhancement:
		return nil
	default:
		return ErrInvalidCategory
	}
}

func AllCategories() []Category {
	return []Category{CategoryBug, CategoryFeature, CategorySupport, CategoryEnhancement}
}

// TestCaseStatus - статус выполнения тест-кейса
type TestCaseStatus string

const (
	TestCasePending TestCaseStatus = "pending"
	TestCasePassed  TestCaseStatus = "passed"
	TestCaseFailed  TestCaseStatus = "failed"
	TestCaseBlocked TestCaseStatus = "blocked"
)

func (s TestCaseStatus) Validate() error {
	switch s {
	case TestCasePending, TestCasePassed, TestCaseFailed, TestCaseBlocked:
		return nil
	default:
		return ErrInvalidTestCaseStatus
	}
}

// IsExecution - статус, который означает факт прогона
func (s TestCaseStatus) IsExecution() bool {
	return s == TestCasePassed || s == TestCaseFailed || s == TestCaseBlocked
}

// SuiteStatus - статус тестового набора
type SuiteStatus string

const (
	SuiteDraft    SuiteStatus = "draft"
	SuiteActive   SuiteStatus = "active"
	SuiteArchived SuiteStatus = "archived"
)

func (s SuiteStatus) Validate() error {
	switch s {
	case SuiteDraft, SuiteActive, SuiteArchived:
		return nil
	default:
		return ErrInvalidSuiteStatus
	}
}
