package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// Ticket - заявка (баг, фича, поддержка)
type Ticket struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	Status         valueobject.TicketStatus `json:"status"`
	Priority       valueobject.Priority     `json:"priority"`
	Category       valueobject.Category     `json:"category"`
	AssignedTo     string                   `json:"assignedTo,omitempty"`
	ReportedBy     string                   `json:"reportedBy"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
	ResolvedAt     *time.Time               `json:"resolvedAt,omitempty"`
	Tags           []string                 `json:"tags"`
	Attachments    []string                 `json:"attachments"`
	EstimatedHours *float64                 `json:"estimatedHours,omitempty"`
	ActualHours    *float64                 `json:"actualHours,omitempty"`
}

// NewTicket создает открытый тикет
func NewTicket(title, description string, priority valueobject.Priority, category valueobject.Category, reportedBy string, now time.Time) *Ticket {
	return &Ticket{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      valueobject.TicketOpen,
		Priority:    priority,
		Category:    category,
		ReportedBy:  reportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        []string{},
		Attachments: []string{},
	}
}

// Matches - регистронезависимый поиск по заголовку, описанию и тегам
func (t *Ticket) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// ResolutionTime возвращает время от создания до решения
func (t *Ticket) ResolutionTime() (time.Duration, bool) {
	if t.ResolvedAt == nil {
		return 0, false
	}
	return t.ResolvedAt.Sub(t.CreatedAt), true
}
