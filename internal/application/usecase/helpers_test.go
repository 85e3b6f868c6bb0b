package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type mockNotifier struct {
	mu     sync.Mutex
	events []*dto.EventDTO
}

func (m *mockNotifier) Publish(topic string, event *dto.EventDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) ClientCount() int { return 0 }

func (m *mockNotifier) types(topic string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0)
	for _, e := range m.events {
		if topic == "" || e.Topic == topic {
			out = append(out, e.Type)
		}
	}
	return out
}

type mockEventPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return m.err
}

func (m *mockEventPublisher) Close() error { return nil }

// testEnv - набор use case поверх одного хранилища в памяти
type testEnv struct {
	store     *memory.Store
	notifier  *mockNotifier
	publisher *mockEventPublisher
	events    *EventDispatcher
	activity  *ActivityLogger
	tickets   *TicketUseCase
	comments  *CommentUseCase
	testCases *TestCaseUseCase
	suites    *TestSuiteUseCase
	users     *UserUseCase
	log       *logger.Logger
}

func newTestEnv() *testEnv {
	log := logger.New("error")
	store := memory.NewStore()
	notifier := &mockNotifier{}
	publisher := &mockEventPublisher{}
	events := NewEventDispatcher(notifier, publisher, "qtrack.events", log)
	activity := NewActivityLogger(store, log)
	testCases := NewTestCaseUseCase(store, activity, events, log)

	return &testEnv{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		events:    events,
		activity:  activity,
		tickets:   NewTicketUseCase(store, activity, events, log),
		comments:  NewCommentUseCase(store, activity, events, log),
		testCases: testCases,
		suites:    NewTestSuiteUseCase(store, testCases, activity, log),
		users:     NewUserUseCase(store, activity, log),
		log:       log,
	}
}

// steppingClock отдает монотонно растущее время с шагом в секунду
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock(start time.Time) *steppingClock {
	return &steppingClock{now: start}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (e *testEnv) useClock(now func() time.Time) {
	e.activity.now = now
	e.tickets.now = now
	e.comments.now = now
	e.testCases.now = now
	e.suites.now = now
	e.users.now = now
}

func healthyCollector() *service.MetricsCollector {
	return service.NewMetricsCollector(service.SubCollectors{
		Coverage: func(context.Context) entity.CoverageMetrics {
			return entity.CoverageMetrics{Percentage: 85}
		},
		Lighthouse: func(context.Context) entity.LighthouseMetrics {
			return entity.LighthouseMetrics{Performance: 92, Accessibility: 96}
		},
		Bundle: func(context.Context) entity.BundleMetrics {
			return entity.BundleMetrics{Size: entity.BundleSize{KB: 450}}
		},
		API: func(context.Context) entity.APIMetrics {
			return entity.APIMetrics{Response: entity.APIResponse{Time: entity.LatencyPercentiles{P95: 180}}}
		},
	})
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }
