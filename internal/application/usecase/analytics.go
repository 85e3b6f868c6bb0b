package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// AnalyticsUseCase считает сводную аналитику за период; cache опционален
type AnalyticsUseCase struct {
	tickets   *repository.Collection[entity.Ticket]
	testCases *repository.Collection[entity.TestCase]
	users     *repository.Collection[entity.User]
	activity  *ActivityLogger
	cache     port.Cache
	now       func() time.Time
	logger    *logger.Logger
}

func NewAnalyticsUseCase(
	store repository.Store,
	activity *ActivityLogger,
	cache port.Cache,
	logger *logger.Logger,
) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		tickets:   repository.NewCollection[entity.Ticket](store, repository.CollectionTickets),
		testCases: repository.NewCollection[entity.TestCase](store, repository.CollectionTestCases),
		users:     repository.NewCollection[entity.User](store, repository.CollectionUsers),
		activity:  activity,
		cache:     cache,
		now:       time.Now,
		logger:    logger,
	}
}

// AnalyticsCacheKey - ключ кеша аналитики для периода
func AnalyticsCacheKey(period valueobject.Period) string {
	return "analytics:" + string(period)
}

// Get возвращает аналитику; неизвестный период трактуется как 7d
func (uc *AnalyticsUseCase) Get(ctx context.Context, rawPeriod string) (*dto.AnalyticsDTO, error) {
	period := valueobject.ParsePeriod(rawPeriod)

	// Если кеш не настроен, считаем напрямую
	if uc.cache == nil {
		return uc.compute(ctx, period)
	}

	cacheKey := AnalyticsCacheKey(period)

	var cached dto.AnalyticsDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for analytics", "period", period)
		return &cached, nil
	}

	uc.logger.Debug("Cache miss for analytics", "period", period)

	analytics, err := uc.compute(ctx, period)
	if err != nil {
		return nil, err
	}

	// Сохраняем в кеш асинхронно, не блокируем ответ
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, analytics); err != nil {
			uc.logger.Warn("Failed to cache analytics", "period", period, "error", err.Error())
		}
	}()

	return analytics, nil
}

func (uc *AnalyticsUseCase) compute(ctx context.Context, period valueobject.Period) (*dto.AnalyticsDTO, error) {
	tickets, err := uc.tickets.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	testCases, err := uc.testCases.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load test cases: %w", err)
	}
	users, err := uc.users.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	activities, err := uc.activity.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	start := period.Range(uc.now()).Start()
	inPeriod := func(t time.Time) bool { return !t.Before(start) }

	recentTickets := service.Filter(tickets, func(t *entity.Ticket) bool { return inPeriod(t.CreatedAt) })
	recentTestCases := service.Filter(testCases, func(tc *entity.TestCase) bool { return inPeriod(tc.CreatedAt) })
	recentActivities := service.Filter(activities, func(a *entity.ActivityLog) bool { return inPeriod(a.CreatedAt) })
	executedInPeriod := service.Filter(testCases, func(tc *entity.TestCase) bool {
		return tc.ExecutedAt != nil && inPeriod(*tc.ExecutedAt)
	})

	return &dto.AnalyticsDTO{
		Period:     string(period),
		Tickets:    ticketStats(tickets, len(recentTickets)),
		TestCases:  testCaseStats(testCases, len(recentTestCases), len(executedInPeriod)),
		Users:      userStats(users),
		Activities: activityStats(recentActivities),
		Metrics:    performanceStats(tickets, testCases, len(recentTickets), len(executedInPeriod)),
	}, nil
}

func ticketStats(tickets []*entity.Ticket, recentlyCreated int) dto.TicketStatsDTO {
	byStatus := service.CountBy(tickets, func(t *entity.Ticket) string { return string(t.Status) })

	return dto.TicketStatsDTO{
		Total:           len(tickets),
		Open:            byStatus[string(valueobject.TicketOpen)],
		InProgress:      byStatus[string(valueobject.TicketInProgress)],
		Resolved:        byStatus[string(valueobject.TicketResolved)],
		Closed:          byStatus[string(valueobject.TicketClosed)],
		ByPriority:      service.CountWithKeys(tickets, priorityKeys(), func(t *entity.Ticket) string { return string(t.Priority) }),
		ByCategory:      service.CountWithKeys(tickets, categoryKeys(), func(t *entity.Ticket) string { return string(t.Category) }),
		RecentlyCreated: recentlyCreated,
	}
}

func testCaseStats(testCases []*entity.TestCase, recentlyCreated, executedInPeriod int) dto.TestCaseStatsDTO {
	byStatus := service.CountBy(testCases, func(tc *entity.TestCase) string { return string(tc.Status) })

	return dto.TestCaseStatsDTO{
		Total:            len(testCases),
		Pending:          byStatus[string(valueobject.TestCasePending)],
		Passed:           byStatus[string(valueobject.TestCasePassed)],
		Failed:           byStatus[string(valueobject.TestCaseFailed)],
		Blocked:          byStatus[string(valueobject.TestCaseBlocked)],
		ByPriority:       service.CountWithKeys(testCases, priorityKeys(), func(tc *entity.TestCase) string { return string(tc.Priority) }),
		RecentlyCreated:  recentlyCreated,
		ExecutedInPeriod: executedInPeriod,
	}
}

func userStats(users []*entity.User) dto.UserStatsDTO {
	roles := valueobject.AllRoles()
	keys := make([]string, 0, len(roles))
	for _, r := range roles {
		keys = append(keys, string(r))
	}

	active := service.Filter(users, func(u *entity.User) bool { return u.IsActive })

	return dto.UserStatsDTO{
		Total:  len(users),
		Active: len(active),
		ByRole: service.CountWithKeys(users, keys, func(u *entity.User) string { return string(u.Role) }),
	}
}

func activityStats(activities []*entity.ActivityLog) dto.ActivityStatsDTO {
	return dto.ActivityStatsDTO{
		TotalInPeriod: len(activities),
		ByAction:      service.CountBy(activities, func(a *entity.ActivityLog) string { return a.Action }),
	}
}

func performanceStats(tickets []*entity.Ticket, testCases []*entity.TestCase, ticketVelocity, executionRate int) dto.PerformanceStatDTO {
	executed := service.Filter(testCases, func(tc *entity.TestCase) bool { return tc.IsExecuted() })
	passed := service.Filter(executed, func(tc *entity.TestCase) bool { return tc.Status == valueobject.TestCasePassed })

	resolutions := make([]time.Duration, 0, len(tickets))
	for _, t := range tickets {
		if d, ok := t.ResolutionTime(); ok {
			resolutions = append(resolutions, d)
		}
	}

	return dto.PerformanceStatDTO{
		OverallPassRate:        service.PassRate(len(passed), len(executed)),
		AvgResolutionTimeHours: service.AverageHours(resolutions),
		TicketVelocity:         ticketVelocity,
		TestExecutionRate:      executionRate,
	}
}

func priorityKeys() []string {
	priorities := valueobject.AllPriorities()
	keys := make([]string, 0, len(priorities))
	for _, p := range priorities {
		keys = append(keys, string(p))
	}
	return keys
}

func categoryKeys() []string {
	categories := valueobject.AllCategories()
	keys := make([]string, 0, len(categories))
	for _, c := range categories {
		keys = append(keys, string(c))
	}
	return keys
}
