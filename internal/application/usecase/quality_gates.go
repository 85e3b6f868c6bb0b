package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// QualityGatesUseCase - сценарии работы с quality gates
type QualityGatesUseCase struct {
	collector *service.MetricsCollector
	manager   *service.QualityGateManager
	events    *EventDispatcher
	logger    *logger.Logger
}

func NewQualityGatesUseCase(
	collector *service.MetricsCollector,
	manager *service.QualityGateManager,
	events *EventDispatcher,
	logger *logger.Logger,
) *QualityGatesUseCase {
	return &QualityGatesUseCase{
		collector: collector,
		manager:   manager,
		events:    events,
		logger:    logger,
	}
}

// GetReport собирает свежий снимок метрик и оценивает по нему все gates
func (uc *QualityGatesUseCase) GetReport(ctx context.Context) (*dto.QualityReportDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	snapshot := uc.collector.Collect(ctx)
	return uc.Evaluate(snapshot), nil
}

// Evaluate оценивает gates по готовому снимку без записи в историю
func (uc *QualityGatesUseCase) Evaluate(snapshot entity.MetricsSnapshot) *dto.QualityReportDTO {
	gates := uc.manager.ListGates()
	results := uc.manager.Evaluate(snapshot.Flatten())
	summary := service.Summarize(results, len(gates))

	return &dto.QualityReportDTO{
		Gates:   dto.FromGates(gates),
		Results: dto.FromGateResults(results),
		Metrics: dto.FromSnapshot(snapshot),
		Summary: dto.FromSummary(summary),
	}
}

// ListGates возвращает конфигурацию gates без оценки
func (uc *QualityGatesUseCase) ListGates() []dto.QualityGateDTO {
	return dto.FromGates(uc.manager.ListGates())
}

func (uc *QualityGatesUseCase) GetGate(id string) (dto.QualityGateDTO, error) {
	gate, ok := uc.manager.Get(id)
	if !ok {
		return dto.QualityGateDTO{}, apperror.NotFound("Quality gate with id %s not found", id)
	}
	return dto.FromGate(gate), nil
}

// UpdateGate применяет частичное обновление.
// В strict режиме неизвестный id - NotFound, иначе обновление молча игнорируется.
func (uc *QualityGatesUseCase) UpdateGate(ctx context.Context, id string, update dto.GateUpdateDTO, strict bool) error {
	if id == "" {
		return apperror.Validation("Gate ID and updates are required")
	}

	changes, err := update.ToEntity()
	if err != nil {
		if errors.Is(err, valueobject.ErrInvalidOperator) {
			return apperror.Validation("Invalid operator: %s", *update.Operator)
		}
		return fmt.Errorf("failed to parse gate update: %w", err)
	}

	if !uc.manager.UpdateGate(id, changes) {
		if strict {
			return apperror.NotFound("Quality gate with id %s not found", id)
		}
		uc.logger.Debug("Ignoring update for unknown quality gate", "gate_id", id)
		return nil
	}

	if changes.IsEmpty() {
		return nil
	}

	gate, _ := uc.manager.Get(id)
	uc.logger.Info("Quality gate updated",
		"gate_id", id,
		"operator", gate.Operator().String(),
		"threshold", gate.Threshold(),
		"enabled", gate.Enabled(),
	)
	uc.events.Dispatch(ctx, dto.NewEventDTO(dto.EventGateUpdated, dto.TopicQuality, dto.FromGate(gate)))

	return nil
}
