package port

import "github.com/dreschagin/qtrack/internal/application/dto"

// NotificationService определяет интерфейс real-time рассылки по топикам (Port)
// Реализация в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// Publish отправляет событие подписчикам топика
	Publish(topic string, event *dto.EventDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
