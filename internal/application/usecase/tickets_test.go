package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

func validTicket() CreateTicketCommand {
	return CreateTicketCommand{
		Title:       "Login fails",
		Description: "Users cannot log in with SSO",
		Priority:    "high",
		Category:    "bug",
		Tags:        []string{"auth", "sso"},
		ReportedBy:  "user-1",
	}
}

func TestCreateTicketValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *CreateTicketCommand)
		wantMsg string
	}{
		{name: "missing title", mutate: func(c *CreateTicketCommand) { c.Title = "  " }, wantMsg: "Title is required"},
		{name: "missing description", mutate: func(c *CreateTicketCommand) { c.Description = "" }, wantMsg: "Description is required"},
		{name: "missing priority", mutate: func(c *CreateTicketCommand) { c.Priority = "" }, wantMsg: "Priority is required"},
		{name: "invalid priority", mutate: func(c *CreateTicketCommand) { c.Priority = "urgent" }, wantMsg: "Invalid priority"},
		{name: "invalid category", mutate: func(c *CreateTicketCommand) { c.Category = "question" }, wantMsg: "Invalid category"},
		{name: "negative estimate", mutate: func(c *CreateTicketCommand) { c.EstimatedHours = floatPtr(-1) }, wantMsg: "Estimated hours"},
		{name: "missing reporter", mutate: func(c *CreateTicketCommand) { c.ReportedBy = "" }, wantMsg: "reportedBy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			cmd := validTicket()
			tt.mutate(&cmd)

			_, err := env.tickets.Create(context.Background(), cmd)
			if !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected message containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestCreateTicketLogsAndPublishes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	ticket, err := env.tickets.Create(ctx, validTicket())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ticket.Status != valueobject.TicketOpen {
		t.Fatalf("new ticket must be open, got %s", ticket.Status)
	}

	logs, _ := env.activity.List(ctx, ActivityFilter{EntityID: ticket.ID})
	if len(logs) != 1 || logs[0].Action != "ticket_created" {
		t.Fatalf("expected ticket_created activity, got %+v", logs)
	}

	if got := env.notifier.types(dto.TicketTopic(ticket.ID)); len(got) != 1 || got[0] != dto.EventTicketCreated {
		t.Fatalf("expected ticket.created on ticket topic, got %v", got)
	}
}

func TestUpdateTicketResolves(t *testing.T) {
	env := newTestEnv()
	clock := newSteppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	env.useClock(clock.Now)
	ctx := context.Background()

	ticket, _ := env.tickets.Create(ctx, validTicket())

	updated, err := env.tickets.Update(ctx, ticket.ID, UpdateTicketCommand{
		Status:    strPtr("resolved"),
		UpdatedBy: "user-2",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ResolvedAt == nil {
		t.Fatal("expected resolvedAt on transition to resolved")
	}
	if !updated.UpdatedAt.After(ticket.UpdatedAt) {
		t.Fatal("expected updatedAt to advance")
	}

	logs, _ := env.activity.List(ctx, ActivityFilter{EntityID: ticket.ID})
	actions := make(map[string]bool)
	for _, l := range logs {
		actions[l.Action] = true
	}
	if !actions["ticket_status_changed"] {
		t.Fatalf("expected ticket_status_changed, got %v", actions)
	}

	if _, err := env.tickets.Update(ctx, ticket.ID, UpdateTicketCommand{Status: strPtr("done"), UpdatedBy: "u"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	if _, err := env.tickets.Update(ctx, "missing", UpdateTicketCommand{UpdatedBy: "u"}); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTicketsFilters(t *testing.T) {
	env := newTestEnv()
	clock := newSteppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	env.useClock(clock.Now)
	ctx := context.Background()

	first := validTicket()
	second := validTicket()
	second.Title = "Dark mode"
	second.Description = "Add a dark theme"
	second.Category = "feature"
	second.Priority = "low"
	second.Tags = []string{"ui"}

	a, _ := env.tickets.Create(ctx, first)
	b, _ := env.tickets.Create(ctx, second)

	all, err := env.tickets.List(ctx, TicketFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatal("expected most recently updated ticket first")
	}

	tests := []struct {
		name   string
		filter TicketFilter
		want   string
	}{
		{name: "by category", filter: TicketFilter{Category: "bug"}, want: a.ID},
		{name: "by priority", filter: TicketFilter{Priority: "low"}, want: b.ID},
		{name: "search tag", filter: TicketFilter{Search: "SSO"}, want: a.ID},
		{name: "search description", filter: TicketFilter{Search: "theme"}, want: b.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := env.tickets.List(ctx, tt.filter)
			if len(got) != 1 || got[0].ID != tt.want {
				t.Fatalf("unexpected result for %+v: %d tickets", tt.filter, len(got))
			}
		})
	}
}

func TestDeleteTicket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	ticket, _ := env.tickets.Create(ctx, validTicket())

	if err := env.tickets.Delete(ctx, ticket.ID, ""); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error without actor, got %v", err)
	}
	if err := env.tickets.Delete(ctx, ticket.ID, "admin"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.tickets.Get(ctx, ticket.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := env.tickets.Delete(ctx, ticket.ID, "admin"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCommentsLifecycle(t *testing.T) {
	env := newTestEnv()
	clock := newSteppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	env.useClock(clock.Now)
	ctx := context.Background()

	ticket, _ := env.tickets.Create(ctx, validTicket())

	if _, err := env.comments.Create(ctx, CreateCommentCommand{TicketID: "missing", UserID: "u", Content: "hi"}); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found for unknown ticket, got %v", err)
	}
	if _, err := env.comments.Create(ctx, CreateCommentCommand{TicketID: ticket.ID, UserID: "u", Content: strings.Repeat("я", 5001)}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error for long content, got %v", err)
	}

	first, err := env.comments.Create(ctx, CreateCommentCommand{TicketID: ticket.ID, UserID: "u", Content: "first"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, _ := env.comments.Create(ctx, CreateCommentCommand{TicketID: ticket.ID, UserID: "u", Content: "second"})

	byTicket, _ := env.comments.ListByTicket(ctx, ticket.ID)
	if len(byTicket) != 2 || byTicket[0].ID != first.ID {
		t.Fatal("expected comments of a ticket oldest first")
	}
	all, _ := env.comments.ListAll(ctx)
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatal("expected all comments newest first")
	}

	if got := env.notifier.types(dto.TicketTopic(ticket.ID)); got[len(got)-1] != dto.EventCommentCreated {
		t.Fatalf("expected comment.created on ticket topic, got %v", got)
	}

	updated, err := env.comments.Update(ctx, first.ID, UpdateCommentCommand{Content: strPtr("edited"), UpdatedBy: "u"})
	if err != nil || updated.Content != "edited" {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}

	if err := env.comments.Delete(ctx, first.ID, "u"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.comments.Get(ctx, first.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
