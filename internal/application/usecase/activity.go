package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// ActivityFilter - фильтр журнала действий
type ActivityFilter struct {
	UserID     string
	EntityType string
	EntityID   string
}

// ActivityLogger ведет журнал действий пользователей
type ActivityLogger struct {
	logs   *repository.Collection[entity.ActivityLog]
	now    func() time.Time
	logger *logger.Logger
}

func NewActivityLogger(store repository.Store, logger *logger.Logger) *ActivityLogger {
	return &ActivityLogger{
		logs:   repository.NewCollection[entity.ActivityLog](store, repository.CollectionActivity),
		now:    time.Now,
		logger: logger,
	}
}

// Record пишет запись журнала. Ошибка записи не отменяет основное действие,
// поэтому она только логируется.
func (a *ActivityLogger) Record(
	ctx context.Context,
	userID, action string,
	entityType entity.EntityType,
	entityID string,
	details map[string]interface{},
) {
	entry := entity.NewActivityLog(userID, action, entityType, entityID, details, a.now())
	if err := a.logs.Put(ctx, entry.ID, entry); err != nil {
		a.logger.Error("Failed to record activity", err,
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
		)
	}
}

// List возвращает записи от новых к старым
func (a *ActivityLogger) List(ctx context.Context, filter ActivityFilter) ([]*entity.ActivityLog, error) {
	entries, err := a.logs.List(ctx, func(e *entity.ActivityLog) bool {
		if filter.UserID != "" && e.UserID != filter.UserID {
			return false
		}
		if filter.EntityType != "" && string(e.EntityType) != filter.EntityType {
			return false
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	service.SortByTime(entries, func(e *entity.ActivityLog) time.Time { return e.CreatedAt }, true)
	return entries, nil
}

// all возвращает весь журнал (для аналитики)
func (a *ActivityLogger) all(ctx context.Context) ([]*entity.ActivityLog, error) {
	return a.logs.List(ctx, nil)
}
