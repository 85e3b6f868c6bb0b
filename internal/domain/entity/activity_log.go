package entity

import (
	"time"

	"github.com/google/uuid"
)

// EntityType - тип сущности, к которой относится запись журнала
type EntityType string

const (
	EntityTicket    EntityType = "ticket"
	EntityComment   EntityType = "comment"
	EntityTestCase  EntityType = "test_case"
	EntityTestSuite EntityType = "test_suite"
	EntityUser      EntityType = "user"
	EntityGate      EntityType = "quality_gate"
)

// ActivityLog - запись журнала действий пользователя
type ActivityLog struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"userId"`
	Action     string                 `json:"action"`
	EntityType EntityType             `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"createdAt"`
}

func NewActivityLog(userID, action string, entityType EntityType, entityID string, details map[string]interface{}, now time.Time) *ActivityLog {
	if details == nil {
		details = map[string]interface{}{}
	}
	return &ActivityLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  now,
	}
}
