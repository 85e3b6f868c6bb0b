package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

func newQualityGates(notifier *mockNotifier) *QualityGatesUseCase {
	log := logger.New("error")
	manager := service.NewQualityGateManager(service.DefaultQualityGates())
	return NewQualityGatesUseCase(healthyCollector(), manager, NewEventDispatcher(notifier, nil, "", log), log)
}

func TestGetReportAllPassing(t *testing.T) {
	uc := newQualityGates(&mockNotifier{})

	report, err := uc.GetReport(context.Background())
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}

	if len(report.Gates) != 6 || len(report.Results) != 6 {
		t.Fatalf("expected 6 gates and results, got %d/%d", len(report.Gates), len(report.Results))
	}
	if report.Summary.Passed != 6 || report.Summary.Failed != 0 || report.Summary.OverallHealth != 100 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.Metrics == nil || report.Metrics.Timestamp == 0 {
		t.Fatal("expected metrics snapshot with timestamp")
	}
}

func TestGetReportCanceledContext(t *testing.T) {
	uc := newQualityGates(&mockNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := uc.GetReport(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUpdateGateThresholdChangesEvaluation(t *testing.T) {
	notifier := &mockNotifier{}
	uc := newQualityGates(notifier)
	ctx := context.Background()

	err := uc.UpdateGate(ctx, "test-coverage", dto.GateUpdateDTO{Threshold: floatPtr(90)}, false)
	if err != nil {
		t.Fatalf("UpdateGate() error = %v", err)
	}

	report, _ := uc.GetReport(ctx)
	if report.Summary.Failed != 1 || report.Summary.OverallHealth != 83.33 {
		t.Fatalf("expected one failed gate and 83.33 health, got %+v", report.Summary)
	}

	got := notifier.types(dto.TopicQuality)
	if len(got) != 1 || got[0] != dto.EventGateUpdated {
		t.Fatalf("expected gate_updated event, got %v", got)
	}
}

func TestUpdateGateErrors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		update   dto.GateUpdateDTO
		strict   bool
		wantKind apperror.Kind
		wantNil  bool
	}{
		{name: "empty id", id: "", update: dto.GateUpdateDTO{Threshold: floatPtr(1)}, wantKind: apperror.KindValidation},
		{name: "invalid operator", id: "test-coverage", update: dto.GateUpdateDTO{Operator: strPtr("between")}, wantKind: apperror.KindValidation},
		{name: "unknown id compat", id: "nope", update: dto.GateUpdateDTO{Threshold: floatPtr(1)}, wantNil: true},
		{name: "unknown id strict", id: "nope", update: dto.GateUpdateDTO{Threshold: floatPtr(1)}, strict: true, wantKind: apperror.KindNotFound},
		{name: "empty update", id: "bundle-size", update: dto.GateUpdateDTO{}, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newQualityGates(&mockNotifier{})
			err := uc.UpdateGate(context.Background(), tt.id, tt.update, tt.strict)
			if tt.wantNil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !apperror.Is(err, tt.wantKind) {
				t.Fatalf("expected %s error, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestDisableGateKeepsTotal(t *testing.T) {
	uc := newQualityGates(&mockNotifier{})
	ctx := context.Background()

	if err := uc.UpdateGate(ctx, "bundle-size", dto.GateUpdateDTO{Enabled: boolPtr(false)}, true); err != nil {
		t.Fatalf("UpdateGate() error = %v", err)
	}

	report, _ := uc.GetReport(ctx)
	if len(report.Results) != 5 {
		t.Fatalf("disabled gate must not be evaluated, got %d results", len(report.Results))
	}
	if report.Summary.Total != 6 || report.Summary.Passed != 5 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestGetGate(t *testing.T) {
	uc := newQualityGates(&mockNotifier{})

	gate, err := uc.GetGate("security-vulnerabilities")
	if err != nil {
		t.Fatalf("GetGate() error = %v", err)
	}
	if gate.Operator != "lte" || gate.Threshold != 0 {
		t.Fatalf("unexpected gate: %+v", gate)
	}

	if _, err := uc.GetGate("missing"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type mockMetricsPublisher struct {
	reports int
	flushed int
	err     error
}

func (m *mockMetricsPublisher) PublishEvaluation(context.Context, *dto.QualityReportDTO) error {
	m.reports++
	return m.err
}

func (m *mockMetricsPublisher) Flush(context.Context) error {
	m.flushed++
	return nil
}

func TestRunQualityCycleDispatchesAlerts(t *testing.T) {
	notifier := &mockNotifier{}
	gates := newQualityGates(notifier)
	ctx := context.Background()

	// Делаем проваленными два gate
	_ = gates.UpdateGate(ctx, "test-coverage", dto.GateUpdateDTO{Threshold: floatPtr(99)}, true)
	_ = gates.UpdateGate(ctx, "bundle-size", dto.GateUpdateDTO{Threshold: floatPtr(100)}, true)
	notifier.events = nil

	ok := &mockMetricsPublisher{}
	failing := &mockMetricsPublisher{err: errors.New("unavailable")}
	cycle := NewRunQualityCycleUseCase(gates, gates.events, logger.New("error"), ok, nil, failing)

	report, err := cycle.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if report.Summary.Failed != 2 {
		t.Fatalf("expected 2 failed gates, got %d", report.Summary.Failed)
	}
	if ok.reports != 1 || failing.reports != 1 {
		t.Fatal("every publisher must receive the evaluation")
	}

	got := notifier.types(dto.TopicQuality)
	want := []string{dto.EventQualityEvaluated, dto.EventGateFailed, dto.EventGateFailed}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}

	if err := cycle.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if ok.flushed != 1 || failing.flushed != 1 {
		t.Fatal("expected every publisher to be flushed")
	}
}

func TestEventDispatcherMirrorsToBroker(t *testing.T) {
	notifier := &mockNotifier{}
	publisher := &mockEventPublisher{err: errors.New("broker down")}
	d := NewEventDispatcher(notifier, publisher, "", logger.New("error"))

	d.Dispatch(context.Background(), dto.NewEventDTO(dto.EventTicketCreated, dto.TopicTickets, nil))

	if len(publisher.subjects) != 1 || publisher.subjects[0] != "qtrack.events.ticket.created" {
		t.Fatalf("unexpected subjects: %v", publisher.subjects)
	}
	if len(notifier.events) != 1 {
		t.Fatal("broker failure must not block websocket delivery")
	}

	var nilDispatcher *EventDispatcher
	nilDispatcher.Dispatch(context.Background(), dto.NewEventDTO("x", "y", nil))
}
