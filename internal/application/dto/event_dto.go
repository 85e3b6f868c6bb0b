package dto

import "time"

// Типы real-time событий
const (
	EventQualityEvaluated = "quality.evaluated"
	EventGateFailed       = "quality.gate_failed"
	EventGateUpdated      = "quality.gate_updated"
	EventTicketCreated    = "ticket.created"
	EventTicketUpdated    = "ticket.updated"
	EventTicketDeleted    = "ticket.deleted"
	EventCommentCreated   = "comment.created"
	EventTestCaseExecuted = "test_case.executed"
)

// TopicQuality - топик результатов quality gates
const TopicQuality = "quality"

// TicketTopic - топик событий одного тикета
func TicketTopic(ticketID string) string {
	return "ticket:" + ticketID
}

// TopicTickets - общий топик событий по всем тикетам
const TopicTickets = "tickets"

// EventDTO - конверт события для WebSocket и брокера
type EventDTO struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEventDTO(eventType, topic string, data interface{}) *EventDTO {
	return &EventDTO{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
