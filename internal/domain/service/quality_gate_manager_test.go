package service

import (
	"sync"
	"testing"

	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

func healthyMetrics() map[string]float64 {
	return map[string]float64{
		"coverage.percentage":           85,
		"lighthouse.performance":        92,
		"lighthouse.accessibility":      98,
		"security.vulnerabilities.high": 0,
		"bundle.size.kb":                450,
		"api.response.time.p95":         180,
	}
}

func resultByID(results []entity.GateResult, id string) (entity.GateResult, bool) {
	for _, r := range results {
		if r.GateID == id {
			return r, true
		}
	}
	return entity.GateResult{}, false
}

func TestDefaultQualityGates(t *testing.T) {
	gates := DefaultQualityGates()
	if len(gates) != 6 {
		t.Fatalf("expected 6 default gates, got %d", len(gates))
	}

	want := []struct {
		id        string
		metric    string
		op        valueobject.Operator
		threshold float64
	}{
		{"test-coverage", "coverage.percentage", valueobject.OperatorGTE, 80},
		{"performance-score", "lighthouse.performance", valueobject.OperatorGTE, 90},
		{"accessibility-score", "lighthouse.accessibility", valueobject.OperatorGTE, 95},
		{"security-vulnerabilities", "security.vulnerabilities.high", valueobject.OperatorLTE, 0},
		{"bundle-size", "bundle.size.kb", valueobject.OperatorLTE, 500},
		{"api-response-time", "api.response.time.p95", valueobject.OperatorLTE, 200},
	}

	for i, w := range want {
		g := gates[i]
		if g.ID() != w.id || g.Metric() != w.metric || g.Operator() != w.op || g.Threshold() != w.threshold || !g.Enabled() {
			t.Fatalf("gate %d mismatch: got %s %s %s %v enabled=%v", i, g.ID(), g.Metric(), g.Operator(), g.Threshold(), g.Enabled())
		}
	}
}

func TestEvaluateAllPassing(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	results := manager.Evaluate(healthyMetrics())
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected gate %s to pass: %s", r.GateID, r.Message)
		}
	}

	summary := Summarize(results, manager.Count())
	if summary.OverallHealth != 100 || summary.Passed != 6 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestEvaluateLowCoverage(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	metrics := healthyMetrics()
	metrics["coverage.percentage"] = 60

	results := manager.Evaluate(metrics)
	r, ok := resultByID(results, "test-coverage")
	if !ok {
		t.Fatal("missing test-coverage result")
	}
	if r.Passed || r.ActualValue != 60 || r.Threshold != 80 {
		t.Fatalf("unexpected test-coverage result: %+v", r)
	}

	summary := Summarize(results, manager.Count())
	if summary.OverallHealth != 83.33 {
		t.Fatalf("expected health 83.33, got %v", summary.OverallHealth)
	}
}

func TestEvaluateMissingMetricDefaultsToZero(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	results := manager.Evaluate(map[string]float64{})

	security, _ := resultByID(results, "security-vulnerabilities")
	if !security.Passed || security.ActualValue != 0 {
		t.Fatalf("expected security gate to pass on missing metric: %+v", security)
	}

	coverage, _ := resultByID(results, "test-coverage")
	if coverage.Passed {
		t.Fatalf("expected coverage gate to fail on missing metric: %+v", coverage)
	}
}

func TestEvaluateSkipsDisabledGates(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	disabled := false
	manager.UpdateGate("bundle-size", entity.GateUpdate{Enabled: &disabled})
	manager.UpdateGate("performance-score", entity.GateUpdate{Enabled: &disabled})

	results := manager.Evaluate(healthyMetrics())
	if len(results) != 4 {
		t.Fatalf("expected 4 results for 4 enabled gates, got %d", len(results))
	}
	if _, ok := resultByID(results, "bundle-size"); ok {
		t.Fatal("disabled gate must not produce a result")
	}
}

func TestUpdateGateVisibleInNextEvaluate(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())
	metrics := map[string]float64{"coverage.percentage": 60}

	before, _ := resultByID(manager.Evaluate(metrics), "test-coverage")
	if before.Passed {
		t.Fatal("expected coverage 60 to fail with threshold 80")
	}

	threshold := 50.0
	if !manager.UpdateGate("test-coverage", entity.GateUpdate{Threshold: &threshold}) {
		t.Fatal("expected update of known gate to succeed")
	}

	after, _ := resultByID(manager.Evaluate(metrics), "test-coverage")
	if !after.Passed || after.Threshold != 50 {
		t.Fatalf("expected coverage 60 to pass with threshold 50: %+v", after)
	}
}

func TestUpdateUnknownGateIsNoop(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())
	before := manager.ListGates()

	threshold := 1.0
	if manager.UpdateGate("does-not-exist", entity.GateUpdate{Threshold: &threshold}) {
		t.Fatal("expected update of unknown gate to report false")
	}

	after := manager.ListGates()
	for i := range before {
		if before[i].Threshold() != after[i].Threshold() {
			t.Fatal("unknown gate update must not change any gate")
		}
	}
}

func TestListGatesReturnsCopy(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	listed := manager.ListGates()
	threshold := 0.0
	listed[0].Apply(entity.GateUpdate{Threshold: &threshold})

	r, _ := resultByID(manager.Evaluate(map[string]float64{"coverage.percentage": 10}), "test-coverage")
	if r.Passed || r.Threshold != 80 {
		t.Fatalf("mutating the listed gates leaked into manager state: %+v", r)
	}
}

func TestNewQualityGateManagerCopiesSeed(t *testing.T) {
	seed := DefaultQualityGates()
	manager := NewQualityGateManager(seed)

	threshold := 0.0
	seed[0].Apply(entity.GateUpdate{Threshold: &threshold})

	g, ok := manager.Get("test-coverage")
	if !ok || g.Threshold() != 80 {
		t.Fatalf("manager must not share seed gates with the caller: %v", g.Threshold())
	}
}

func TestUnknownOperatorFailsUnconditionally(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	op := valueobject.Operator("between")
	manager.UpdateGate("bundle-size", entity.GateUpdate{Operator: &op})

	r, _ := resultByID(manager.Evaluate(healthyMetrics()), "bundle-size")
	if r.Passed {
		t.Fatal("gate with unknown operator must fail")
	}
}

func TestEmptyManagerHealth(t *testing.T) {
	manager := NewQualityGateManager(nil)

	results := manager.Evaluate(healthyMetrics())
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if summary := Summarize(results, manager.Count()); summary.OverallHealth != 100 {
		t.Fatalf("expected 100 health for empty gate set, got %v", summary.OverallHealth)
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	manager := NewQualityGateManager(DefaultQualityGates())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			threshold := float64(i)
			manager.UpdateGate("test-coverage", entity.GateUpdate{Threshold: &threshold})
		}(i)
		go func() {
			defer wg.Done()
			_ = manager.Evaluate(healthyMetrics())
			_ = manager.ListGates()
		}()
	}
	wg.Wait()
}
