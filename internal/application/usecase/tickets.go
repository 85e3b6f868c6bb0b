package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// CreateTicketCommand - данные для создания тикета
type CreateTicketCommand struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Category       string   `json:"category"`
	AssignedTo     string   `json:"assignedTo,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`
	ReportedBy     string   `json:"reportedBy"`
}

// UpdateTicketCommand - частичное обновление; nil поля не меняются
type UpdateTicketCommand struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Status         *string   `json:"status,omitempty"`
	Priority       *string   `json:"priority,omitempty"`
	Category       *string   `json:"category,omitempty"`
	AssignedTo     *string   `json:"assignedTo,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	EstimatedHours *float64  `json:"estimatedHours,omitempty"`
	ActualHours    *float64  `json:"actualHours,omitempty"`
	UpdatedBy      string    `json:"updatedBy"`
}

// TicketFilter - фильтры списка; пустые поля не применяются
type TicketFilter struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	Search     string
}

// TicketUseCase - CRUD тикетов с журналом действий и событиями
type TicketUseCase struct {
	tickets  *repository.Collection[entity.Ticket]
	activity *ActivityLogger
	events   *EventDispatcher
	now      func() time.Time
	logger   *logger.Logger
}

func NewTicketUseCase(
	store repository.Store,
	activity *ActivityLogger,
	events *EventDispatcher,
	logger *logger.Logger,
) *TicketUseCase {
	return &TicketUseCase{
		tickets:  repository.NewCollection[entity.Ticket](store, repository.CollectionTickets),
		activity: activity,
		events:   events,
		now:      time.Now,
		logger:   logger,
	}
}

// List возвращает тикеты, недавно измененные первыми
func (uc *TicketUseCase) List(ctx context.Context, filter TicketFilter) ([]*entity.Ticket, error) {
	tickets, err := uc.tickets.List(ctx, func(t *entity.Ticket) bool {
		if filter.Status != "" && string(t.Status) != filter.Status {
			return false
		}
		if filter.Priority != "" && string(t.Priority) != filter.Priority {
			return false
		}
		if filter.Category != "" && string(t.Category) != filter.Category {
			return false
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			return false
		}
		return t.Matches(filter.Search)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	service.SortByTime(tickets, func(t *entity.Ticket) time.Time { return t.UpdatedAt }, true)
	return tickets, nil
}

func (uc *TicketUseCase) Get(ctx context.Context, id string) (*entity.Ticket, error) {
	ticket, err := uc.tickets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Ticket with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

func (uc *TicketUseCase) Create(ctx context.Context, cmd CreateTicketCommand) (*entity.Ticket, error) {
	if strings.TrimSpace(cmd.Title) == "" {
		return nil, apperror.Validation("Title is required")
	}
	if strings.TrimSpace(cmd.Description) == "" {
		return nil, apperror.Validation("Description is required")
	}
	if cmd.Priority == "" {
		return nil, apperror.Validation("Priority is required")
	}
	priority := valueobject.Priority(cmd.Priority)
	if err := priority.Validate(); err != nil {
		return nil, apperror.Validation("Invalid priority: %s", cmd.Priority)
	}
	if cmd.Category == "" {
		return nil, apperror.Validation("Category is required")
	}
	category := valueobject.Category(cmd.Category)
	if err := category.Validate(); err != nil {
		return nil, apperror.Validation("Invalid category: %s", cmd.Category)
	}
	if cmd.EstimatedHours != nil && *cmd.EstimatedHours < 0 {
		return nil, apperror.Validation("Estimated hours cannot be negative")
	}
	if strings.TrimSpace(cmd.ReportedBy) == "" {
		return nil, apperror.Validation("reportedBy is required")
	}

	ticket := entity.NewTicket(strings.TrimSpace(cmd.Title), cmd.Description, priority, category, cmd.ReportedBy, uc.now())
	ticket.AssignedTo = cmd.AssignedTo
	ticket.EstimatedHours = cmd.EstimatedHours
	if cmd.Tags != nil {
		ticket.Tags = cmd.Tags
	}

	if err := uc.tickets.Put(ctx, ticket.ID, ticket); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	uc.activity.Record(ctx, cmd.ReportedBy, "ticket_created", entity.EntityTicket, ticket.ID, map[string]interface{}{
		"title":    ticket.Title,
		"priority": ticket.Priority,
		"category": ticket.Category,
	})
	uc.publish(ctx, dto.EventTicketCreated, ticket)

	uc.logger.Info("Ticket created", "ticket_id", ticket.ID, "priority", ticket.Priority)
	return ticket, nil
}

func (uc *TicketUseCase) Update(ctx context.Context, id string, cmd UpdateTicketCommand) (*entity.Ticket, error) {
	if strings.TrimSpace(cmd.UpdatedBy) == "" {
		return nil, apperror.Validation("updatedBy is required")
	}

	ticket, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := ticket.Status
	now := uc.now()

	if cmd.Title != nil {
		if strings.TrimSpace(*cmd.Title) == "" {
			return nil, apperror.Validation("Title cannot be empty")
		}
		ticket.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Description != nil {
		ticket.Description = *cmd.Description
	}
	if cmd.Status != nil {
		status := valueobject.TicketStatus(*cmd.Status)
		if err := status.Validate(); err != nil {
			return nil, apperror.Validation("Invalid status: %s", *cmd.Status)
		}
		ticket.Status = status
	}
	if cmd.Priority != nil {
		priority := valueobject.Priority(*cmd.Priority)
		if err := priority.Validate(); err != nil {
			return nil, apperror.Validation("Invalid priority: %s", *cmd.Priority)
		}
		ticket.Priority = priority
	}
	if cmd.Category != nil {
		category := valueobject.Category(*cmd.Category)
		if err := category.Validate(); err != nil {
			return nil, apperror.Validation("Invalid category: %s", *cmd.Category)
		}
		ticket.Category = category
	}
	if cmd.AssignedTo != nil {
		ticket.AssignedTo = *cmd.AssignedTo
	}
	if cmd.Tags != nil {
		ticket.Tags = *cmd.Tags
	}
	if cmd.EstimatedHours != nil {
		if *cmd.EstimatedHours < 0 {
			return nil, apperror.Validation("Estimated hours cannot be negative")
		}
		ticket.EstimatedHours = cmd.EstimatedHours
	}
	if cmd.ActualHours != nil {
		if *cmd.ActualHours < 0 {
			return nil, apperror.Validation("Actual hours cannot be negative")
		}
		ticket.ActualHours = cmd.ActualHours
	}

	// Время решения фиксируется при первом переходе в resolved
	if ticket.Status == valueobject.TicketResolved && previousStatus != valueobject.TicketResolved {
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	}
	ticket.UpdatedAt = now

	if err := uc.tickets.Put(ctx, ticket.ID, ticket); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	uc.activity.Record(ctx, cmd.UpdatedBy, "ticket_updated", entity.EntityTicket, ticket.ID, map[string]interface{}{
		"changes": changedTicketFields(cmd),
	})
	if ticket.Status != previousStatus {
		uc.activity.Record(ctx, cmd.UpdatedBy, "ticket_status_changed", entity.EntityTicket, ticket.ID, map[string]interface{}{
			"from": previousStatus,
			"to":   ticket.Status,
		})
	}
	uc.publish(ctx, dto.EventTicketUpdated, ticket)

	return ticket, nil
}

func (uc *TicketUseCase) Delete(ctx context.Context, id, deletedBy string) error {
	if strings.TrimSpace(deletedBy) == "" {
		return apperror.Validation("deletedBy is required")
	}

	ticket, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Ticket with id %s not found", id)
		}
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	uc.activity.Record(ctx, deletedBy, "ticket_deleted", entity.EntityTicket, id, map[string]interface{}{
		"title": ticket.Title,
	})
	uc.publish(ctx, dto.EventTicketDeleted, ticket)

	uc.logger.Info("Ticket deleted", "ticket_id", id)
	return nil
}

// publish рассылает событие в общий топик и в топик тикета
func (uc *TicketUseCase) publish(ctx context.Context, eventType string, ticket *entity.Ticket) {
	uc.events.Dispatch(ctx, dto.NewEventDTO(eventType, dto.TopicTickets, ticket))
	uc.events.Dispatch(ctx, dto.NewEventDTO(eventType, dto.TicketTopic(ticket.ID), ticket))
}

func changedTicketFields(cmd UpdateTicketCommand) []string {
	fields := make([]string, 0, 9)
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(cmd.Title != nil, "title")
	add(cmd.Description != nil, "description")
	add(cmd.Status != nil, "status")
	add(cmd.Priority != nil, "priority")
	add(cmd.Category != nil, "category")
	add(cmd.AssignedTo != nil, "assignedTo")
	add(cmd.Tags != nil, "tags")
	add(cmd.EstimatedHours != nil, "estimatedHours")
	add(cmd.ActualHours != nil, "actualHours")
	return fields
}
