package qualityrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/qtrack/pkg/logger"
)

// DefaultCycleTimeout ограничивает один цикл сбора
const DefaultCycleTimeout = 20 * time.Second

// Runner периодически запускает цикл quality gates и хранит итог последнего
type Runner struct {
	cycle    Cycle
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	runs        int64
	failures    int64
	lastSummary *CycleSummary
}

func NewRunner(cycle Cycle, log *logger.Logger, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := DefaultCycleTimeout
	if interval < timeout {
		timeout = interval
	}

	return &Runner{
		cycle:     cycle,
		log:       log,
		interval:  interval,
		timeout:   timeout,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Run выполняет первый цикл сразу, затем по тикеру до отмены ctx
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Quality runner started", "interval", r.interval.String())

	_, _ = r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunOnce сам сохраняет и логирует ошибку
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			r.log.Info("Quality runner stopped")
			return nil
		}
	}
}

// RunOnce выполняет один цикл; параллельные вызовы выполняются по очереди
func (r *Runner) RunOnce(ctx context.Context) (*CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	cycleCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := r.now()
	report, err := r.cycle.Execute(cycleCtx)
	runAt := r.now()

	if err != nil {
		wrappedErr := fmt.Errorf("quality cycle failed: %w", err)
		r.updateFailure(runAt, wrappedErr)
		r.log.Error("Quality cycle failed", wrappedErr)
		return nil, wrappedErr
	}

	summary := summarize(report, runAt, runAt.Sub(started))
	r.updateSuccess(runAt, summary)

	if summary.Failed > 0 {
		r.log.Warn("Quality cycle completed with failed gates",
			"failed", summary.Failed,
			"failed_gates", summary.FailedGates,
			"health", summary.OverallHealth,
		)
		return summary, nil
	}

	r.log.Info("Quality cycle completed",
		"passed", summary.Passed,
		"health", summary.OverallHealth,
		"duration_ms", summary.DurationMs,
	)
	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval.String(),
		LastError: r.lastError,
		Runs:      r.runs,
		Failures:  r.failures,
	}
	if !r.lastRunAt.IsZero() {
		at := r.lastRunAt
		snapshot.LastRunAt = &at
	}

	if r.lastSummary != nil {
		copied := *r.lastSummary
		copied.FailedGates = append([]string(nil), r.lastSummary.FailedGates...)
		snapshot.LastSummary = &copied
	}

	return snapshot
}

// Ready - был успешный цикл, и он не старше трех интервалов
func (r *Runner) Ready() error {
	snapshot := r.Snapshot()
	if snapshot.LastRunAt == nil {
		return fmt.Errorf("no quality cycle yet")
	}
	if r.now().Sub(*snapshot.LastRunAt) > r.interval*3 {
		return fmt.Errorf("stale quality cycle")
	}
	if snapshot.LastError != "" {
		return fmt.Errorf("last quality cycle failed: %s", snapshot.LastError)
	}
	return nil
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = err.Error()
	r.runs++
	r.failures++
}

func (r *Runner) updateSuccess(runAt time.Time, summary *CycleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = ""
	r.runs++
	r.lastSummary = summary
}
