package usecase

import (
	"context"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// EventDispatcher рассылает доменные события в WebSocket hub и брокер.
// Оба получателя опциональны.
type EventDispatcher struct {
	notifier      port.NotificationService
	publisher     port.EventPublisher
	subjectPrefix string
	logger        *logger.Logger
}

func NewEventDispatcher(
	notifier port.NotificationService,
	publisher port.EventPublisher,
	subjectPrefix string,
	logger *logger.Logger,
) *EventDispatcher {
	if subjectPrefix == "" {
		subjectPrefix = "qtrack.events"
	}
	return &EventDispatcher{
		notifier:      notifier,
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// Dispatch отправляет событие; ошибки брокера только логируются
func (d *EventDispatcher) Dispatch(ctx context.Context, event *dto.EventDTO) {
	if d == nil || event == nil {
		return
	}

	if d.notifier != nil {
		d.notifier.Publish(event.Topic, event)
	}

	if d.publisher != nil {
		subject := d.subjectPrefix + "." + event.Type
		if err := d.publisher.PublishEvent(ctx, subject, event); err != nil {
			d.logger.Warn("Failed to publish event", "subject", subject, "error", err.Error())
		}
	}
}
