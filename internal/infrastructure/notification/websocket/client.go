package websocket

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/pkg/logger"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Максимальный размер входящего сообщения
	maxMessageSize = 1024
)

// Client - WebSocket клиент с набором подписок
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	send   chan *dto.EventDTO
	topics map[string]struct{}
	logger *logger.Logger
}

// ControlMessage - команда клиента на изменение подписок
type ControlMessage struct {
	Action string   `json:"action"` // "subscribe" или "unsubscribe"
	Topics []string `json:"topics"`
}

func NewClient(hub *Hub, conn *websocket.Conn, topics []string, logger *logger.Logger) *Client {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}

	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan *dto.EventDTO, 256),
		topics: set,
		logger: logger,
	}
}

// ParseTopics разбирает query параметр вида "quality,ticket:42"
func ParseTopics(raw string) []string {
	topics := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// Topics возвращает отсортированный список подписок
func (c *Client) Topics() []string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// subscribedLocked вызывается под блокировкой hub
func (c *Client) subscribedLocked(topic string) bool {
	_, ok := c.topics[topic]
	return ok
}

// ReadPump читает управляющие сообщения клиента.
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("Ignoring malformed client message", "error", err.Error())
			continue
		}

		switch msg.Action {
		case "subscribe":
			c.hub.subscribe(c, msg.Topics, true)
		case "unsubscribe":
			c.hub.subscribe(c, msg.Topics, false)
		}
	}
}

// WritePump отправляет события клиенту.
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Error("WebSocket write error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
