package usecase

import (
	"context"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// MetricsHistoryUseCase отдает последние снимки и принимает внешние снимки (CI)
type MetricsHistoryUseCase struct {
	collector *service.MetricsCollector
	validator *service.SnapshotValidator
	logger    *logger.Logger
}

func NewMetricsHistoryUseCase(
	collector *service.MetricsCollector,
	validator *service.SnapshotValidator,
	logger *logger.Logger,
) *MetricsHistoryUseCase {
	return &MetricsHistoryUseCase{
		collector: collector,
		validator: validator,
		logger:    logger,
	}
}

// Latest возвращает последний снимок или NotFound, если истории нет
func (uc *MetricsHistoryUseCase) Latest(ctx context.Context) (*dto.MetricsSnapshotDTO, error) {
	snapshot, ok := uc.collector.Latest()
	if !ok {
		return nil, apperror.NotFound("No metrics collected yet")
	}
	return dto.FromSnapshot(snapshot), nil
}

// History возвращает до limit снимков; limit <= 0 - значение по умолчанию
func (uc *MetricsHistoryUseCase) History(ctx context.Context, limit int) *dto.MetricsHistoryDTO {
	return dto.NewMetricsHistoryDTO(uc.collector.History(limit))
}

// Record валидирует и добавляет внешний снимок в историю
func (uc *MetricsHistoryUseCase) Record(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) (*dto.MetricsSnapshotDTO, error) {
	if snapshot == nil {
		return nil, apperror.Validation("Metrics snapshot is required")
	}

	snap := snapshot.ToEntity()
	if err := uc.validator.Validate(snap); err != nil {
		uc.logger.Warn("Rejected metrics snapshot", "error", err.Error())
		return nil, apperror.Validation("Invalid metrics snapshot: %s", err.Error())
	}

	stored := uc.collector.Record(snap)
	uc.logger.Debug("Metrics snapshot recorded", "timestamp", stored.Timestamp)

	return dto.FromSnapshot(stored), nil
}
