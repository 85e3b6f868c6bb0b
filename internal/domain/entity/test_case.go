package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// TestCase - ручной QA тест-кейс
type TestCase struct {
	ID             string                     `json:"id"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Steps          []string                   `json:"steps"`
	ExpectedResult string                     `json:"expectedResult"`
	ActualResult   string                     `json:"actualResult,omitempty"`
	Status         valueobject.TestCaseStatus `json:"status"`
	Priority       valueobject.Priority       `json:"priority"`
	AssignedTo     string                     `json:"assignedTo,omitempty"`
	CreatedBy      string                     `json:"createdBy"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
	ExecutedAt     *time.Time                 `json:"executedAt,omitempty"`
	Tags           []string                   `json:"tags"`
	LinkedTickets  []string                   `json:"linkedTickets"`
}

func NewTestCase(title, description string, steps []string, expected string, priority valueobject.Priority, createdBy string, now time.Time) *TestCase {
	return &TestCase{
		ID:             uuid.New().String(),
		Title:          title,
		Description:    description,
		Steps:          steps,
		ExpectedResult: expected,
		Status:         valueobject.TestCasePending,
		Priority:       priority,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		Tags:           []string{},
		LinkedTickets:  []string{},
	}
}

// IsExecuted - тест-кейс хотя бы раз прогонялся
func (tc *TestCase) IsExecuted() bool {
	return tc.ExecutedAt != nil
}

// LinkedTo проверяет привязку к тикету
func (tc *TestCase) LinkedTo(ticketID string) bool {
	for _, id := range tc.LinkedTickets {
		if id == ticketID {
			return true
		}
	}
	return false
}
