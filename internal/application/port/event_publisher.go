package port

import "context"

// EventPublisher отправляет доменные события (тикеты, комментарии, результаты gates)
// в брокер. subject собирается из префикса и типа события: "qtrack.events.ticket.created".
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, event interface{}) error
	Close() error
}
