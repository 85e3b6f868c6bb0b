package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type stubProbe struct {
	sample port.HostSample
	err    error
}

func (s stubProbe) Sample(context.Context) (port.HostSample, error) {
	return s.sample, s.err
}

func TestDefaultBaselinePassesDefaultGates(t *testing.T) {
	c := service.NewMetricsCollector(DefaultBaseline().SubCollectors(nil, logger.New("error")))
	snapshot := c.Collect(context.Background())

	flat := snapshot.Flatten()
	checks := map[string]float64{
		"coverage.percentage":             85,
		"lighthouse.accessibility":        98,
		"security.vulnerabilities.medium": 2,
		"bundle.size.kb":                  450,
		"api.response.time.p99":           350,
		"api.errors.rate":                 0.02,
		"tests.duration":                  45000,
		"runtime.cpu.percent":             0,
	}
	for key, want := range checks {
		if flat[key] != want {
			t.Errorf("%s: expected %v, got %v", key, want, flat[key])
		}
	}

	if err := service.NewSnapshotValidator().Validate(snapshot); err != nil {
		t.Fatalf("baseline snapshot is invalid: %v", err)
	}

	results := service.NewQualityGateManager(service.DefaultQualityGates()).Evaluate(flat)
	for _, r := range results {
		if !r.Passed {
			t.Errorf("gate %s failed on baseline: %s", r.GateID, r.Message)
		}
	}
}

func TestRuntimeSource(t *testing.T) {
	log := logger.New("error")

	ok := RuntimeSource(stubProbe{sample: port.HostSample{CPUPercent: 12.5, MemoryPercent: 40, DiskPercent: 70}}, log)
	metrics := ok(context.Background())
	if metrics.CPUPercent != 12.5 || metrics.MemoryPercent != 40 || metrics.DiskPercent != 70 {
		t.Fatalf("unexpected runtime metrics: %+v", metrics)
	}
	if metrics.Goroutines < 1 {
		t.Fatalf("expected goroutine count, got %v", metrics.Goroutines)
	}

	failing := RuntimeSource(stubProbe{err: errors.New("no /proc")}, log)
	metrics = failing(context.Background())
	if metrics.CPUPercent != 0 || metrics.Goroutines < 1 {
		t.Fatalf("expected goroutines only on probe failure, got %+v", metrics)
	}
}

func TestHostProbeSample(t *testing.T) {
	if testing.Short() {
		t.Skip("reads host counters")
	}

	probe := NewHostProbe(50*time.Millisecond, "")
	sample, err := probe.Sample(context.Background())
	if err != nil {
		t.Skipf("host counters unavailable: %v", err)
	}
	for name, v := range map[string]float64{"cpu": sample.CPUPercent, "memory": sample.MemoryPercent, "disk": sample.DiskPercent} {
		if v < 0 || v > 100 {
			t.Errorf("%s percent out of range: %v", name, v)
		}
	}
}
