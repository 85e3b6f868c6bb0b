package qualityrunner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type fakeCycle struct {
	mu      sync.Mutex
	report  *dto.QualityReportDTO
	err     error
	calls   int32
	active  int32
	overlap int32
	delay   time.Duration
}

func (f *fakeCycle) Execute(ctx context.Context) (*dto.QualityReportDTO, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.active, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.active, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report, f.err
}

func (f *fakeCycle) set(report *dto.QualityReportDTO, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report, f.err = report, err
}

func report(passed, failed int, failedIDs ...string) *dto.QualityReportDTO {
	results := make([]dto.GateResultDTO, 0, passed+failed)
	for i := 0; i < passed; i++ {
		results = append(results, dto.GateResultDTO{GateID: "ok", Passed: true})
	}
	for _, id := range failedIDs {
		results = append(results, dto.GateResultDTO{GateID: id, Passed: false})
	}
	return &dto.QualityReportDTO{
		Results: results,
		Summary: dto.QualitySummaryDTO{
			Total:         passed + failed,
			Passed:        passed,
			Failed:        failed,
			OverallHealth: float64(passed) / float64(passed+failed) * 100,
		},
	}
}

func TestRunOnceStoresSummary(t *testing.T) {
	cycle := &fakeCycle{report: report(3, 1, "test-coverage")}
	runner := NewRunner(cycle, logger.New("error"), time.Minute)

	summary, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Failed != 1 || len(summary.FailedGates) != 1 || summary.FailedGates[0] != "test-coverage" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	snap := runner.Snapshot()
	if snap.Runs != 1 || snap.Failures != 0 || snap.LastRunAt == nil || snap.LastSummary == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if err := runner.Ready(); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}

	// снимок - копия, изменения не видны runner
	snap.LastSummary.FailedGates[0] = "mutated"
	if runner.Snapshot().LastSummary.FailedGates[0] != "test-coverage" {
		t.Fatal("snapshot shares state with runner")
	}
}

func TestRunOnceFailureKeepsLastSummary(t *testing.T) {
	cycle := &fakeCycle{report: report(2, 0)}
	runner := NewRunner(cycle, logger.New("error"), time.Minute)

	if _, err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce() error = %v", err)
	}

	cycle.set(nil, errors.New("collector down"))
	if _, err := runner.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from failing cycle")
	}

	snap := runner.Snapshot()
	if snap.Failures != 1 || snap.Runs != 2 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.LastError == "" || snap.LastSummary == nil || snap.LastSummary.Passed != 2 {
		t.Fatalf("expected previous summary with error, got %+v", snap)
	}
	if err := runner.Ready(); err == nil {
		t.Fatal("runner must not be ready after failed cycle")
	}
}

func TestReadyRequiresFreshCycle(t *testing.T) {
	runner := NewRunner(&fakeCycle{report: report(1, 0)}, logger.New("error"), time.Second)
	if err := runner.Ready(); err == nil {
		t.Fatal("runner without cycles must not be ready")
	}

	if _, err := runner.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	now := time.Now().Add(time.Minute)
	runner.now = func() time.Time { return now }
	if err := runner.Ready(); err == nil {
		t.Fatal("stale cycle must not be ready")
	}
}

func TestRunOnceIsSerialized(t *testing.T) {
	cycle := &fakeCycle{report: report(1, 0), delay: 20 * time.Millisecond}
	runner := NewRunner(cycle, logger.New("error"), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = runner.RunOnce(context.Background())
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&cycle.overlap) != 0 {
		t.Fatal("cycles overlapped")
	}
	if got := runner.Snapshot().Runs; got != 4 {
		t.Fatalf("runs = %d, want 4", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cycle := &fakeCycle{report: report(1, 0)}
	runner := NewRunner(cycle, logger.New("error"), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	if atomic.LoadInt32(&cycle.calls) < 2 {
		t.Fatalf("expected immediate and ticked cycles, got %d", atomic.LoadInt32(&cycle.calls))
	}
}
