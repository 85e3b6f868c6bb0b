package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// RunQualityCycleUseCase координирует периодический цикл:
// сбор снимка, оценку gates, экспорт и рассылку результатов
type RunQualityCycleUseCase struct {
	gates      *QualityGatesUseCase
	publishers []port.MetricsPublisher
	events     *EventDispatcher
	logger     *logger.Logger
}

// NewRunQualityCycleUseCase создает новый use case; nil publishers пропускаются
func NewRunQualityCycleUseCase(
	gates *QualityGatesUseCase,
	events *EventDispatcher,
	logger *logger.Logger,
	publishers ...port.MetricsPublisher,
) *RunQualityCycleUseCase {
	active := make([]port.MetricsPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}

	return &RunQualityCycleUseCase{
		gates:      gates,
		publishers: active,
		events:     events,
		logger:     logger,
	}
}

// Execute выполняет один цикл
func (uc *RunQualityCycleUseCase) Execute(ctx context.Context) (*dto.QualityReportDTO, error) {
	// 1. Собираем снимок и оцениваем gates
	report, err := uc.gates.GetReport(ctx)
	if err != nil {
		uc.logger.Error("Failed to build quality report", err)
		return nil, fmt.Errorf("failed to build quality report: %w", err)
	}

	uc.logger.Debug("Quality gates evaluated",
		"passed", report.Summary.Passed,
		"failed", report.Summary.Failed,
		"health", report.Summary.OverallHealth,
	)

	// 2. Экспортируем оценку во внешние системы
	for _, publisher := range uc.publishers {
		if err := publisher.PublishEvaluation(ctx, report); err != nil {
			// Экспорт не критичен для цикла
			uc.logger.Warn("Failed to publish quality evaluation", "error", err.Error())
		}
	}

	// 3. Рассылаем сводку подписчикам
	uc.events.Dispatch(ctx, dto.NewEventDTO(dto.EventQualityEvaluated, dto.TopicQuality, report))

	// 4. Отправляем alerts для проваленных gates
	uc.sendAlerts(ctx, report)

	return report, nil
}

// Flush сбрасывает буферы экспортеров при остановке
func (uc *RunQualityCycleUseCase) Flush(ctx context.Context) error {
	var firstErr error
	for _, publisher := range uc.publishers {
		if err := publisher.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (uc *RunQualityCycleUseCase) sendAlerts(ctx context.Context, report *dto.QualityReportDTO) {
	now := time.Now().UTC()
	for _, result := range report.FailedResults() {
		alert := dto.NewGateAlertDTO(result, now)
		uc.events.Dispatch(ctx, dto.NewEventDTO(dto.EventGateFailed, dto.TopicQuality, alert))
		uc.logger.Warn("Quality gate failed",
			"gate_id", result.GateID,
			"actual", result.ActualValue,
			"threshold", result.Threshold,
			"level", alert.Level,
		)
	}
}
