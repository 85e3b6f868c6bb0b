package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// Hub управляет WebSocket клиентами и рассылает события по топикам.
// Реализует интерфейс port.NotificationService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]struct{}

	// Канал событий на рассылку
	publish chan *dto.EventDTO

	register   chan *Client
	unregister chan *Client

	// Защищает clients и подписки клиентов
	mu sync.RWMutex

	logger *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		publish:    make(chan *dto.EventDTO, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run обрабатывает регистрацию и рассылку до отмены контекста
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", total, "topics", client.Topics())

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case event := <-h.publish:
			h.deliver(event)
		}
	}
}

// deliver отправляет событие только подписчикам его топика
func (h *Hub) deliver(event *dto.EventDTO) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients {
		if !client.subscribedLocked(event.Topic) {
			continue
		}
		select {
		case client.send <- event:
			delivered++
		default:
			// Канал клиента заполнен, отключаем его
			h.removeLocked(client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}

	h.logger.Debug("Event delivered", "type", event.Type, "topic", event.Topic, "clients", delivered)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish ставит событие в очередь рассылки (реализация port.NotificationService)
func (h *Hub) Publish(topic string, event *dto.EventDTO) {
	if event == nil {
		return
	}
	if event.Topic != topic {
		copied := *event
		copied.Topic = topic
		event = &copied
	}

	select {
	case h.publish <- event:
	default:
		h.logger.Warn("Publish channel full, dropping event", "type", event.Type, "topic", topic)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// subscribe меняет подписки клиента под блокировкой hub
func (h *Hub) subscribe(client *Client, topics []string, add bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if add {
			client.topics[topic] = struct{}{}
		} else {
			delete(client.topics, topic)
		}
	}
}
