package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/qtrack/internal/application/dto"
	wsInfra "github.com/dreschagin/qtrack/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// WebSocketHandler обрабатывает WebSocket connections
type WebSocketHandler struct {
	hub            *wsInfra.Hub
	logger         *logger.Logger
	allowedOrigins map[string]struct{}
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler создает handler; авторизацию выполняет middleware роутера
func NewWebSocketHandler(hub *wsInfra.Hub, allowedOrigins []string, logger *logger.Logger) *WebSocketHandler {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	handler := &WebSocketHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: originMap,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     handler.checkOrigin,
	}

	return handler
}

// checkOrigin пропускает клиентов без Origin (CLI, сервисы) и браузеры
// из списка разрешенных источников
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	normalized := parsed.Scheme + "://" + parsed.Host
	if _, ok := h.allowedOrigins[normalized]; ok {
		return true
	}
	if _, ok := h.allowedOrigins["*"]; ok {
		return true
	}

	return false
}

// HandleConnection - GET /ws?topics=quality,ticket:<id>.
// Без topics клиент подписывается на результаты quality gates.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	topics := wsInfra.ParseTopics(r.URL.Query().Get("topics"))
	if len(topics) == 0 {
		topics = []string{dto.TopicQuality}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			"remote_addr", r.RemoteAddr,
			"error", err.Error(),
		)
		return
	}

	client := wsInfra.NewClient(h.hub, conn, topics, h.logger)
	h.hub.Register(client)

	h.logger.Debug("WebSocket client connected",
		"remote_addr", r.RemoteAddr,
		"topics", topics,
	)

	// Запускаем pumps в отдельных goroutines
	go client.WritePump()
	go client.ReadPump()
}
