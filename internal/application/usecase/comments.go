package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type CreateCommentCommand struct {
	TicketID    string   `json:"ticketId"`
	UserID      string   `json:"userId"`
	Content     string   `json:"content"`
	IsInternal  bool     `json:"isInternal"`
	Attachments []string `json:"attachments,omitempty"`
}

// UpdateCommentCommand - меняются только текст и вложения
type UpdateCommentCommand struct {
	Content     *string   `json:"content,omitempty"`
	Attachments *[]string `json:"attachments,omitempty"`
	UpdatedBy   string    `json:"updatedBy"`
}

type CommentUseCase struct {
	comments *repository.Collection[entity.Comment]
	tickets  *repository.Collection[entity.Ticket]
	activity *ActivityLogger
	events   *EventDispatcher
	now      func() time.Time
	logger   *logger.Logger
}

func NewCommentUseCase(
	store repository.Store,
	activity *ActivityLogger,
	events *EventDispatcher,
	logger *logger.Logger,
) *CommentUseCase {
	return &CommentUseCase{
		comments: repository.NewCollection[entity.Comment](store, repository.CollectionComments),
		tickets:  repository.NewCollection[entity.Ticket](store, repository.CollectionTickets),
		activity: activity,
		events:   events,
		now:      time.Now,
		logger:   logger,
	}
}

// ListByTicket возвращает комментарии тикета, старые первыми
func (uc *CommentUseCase) ListByTicket(ctx context.Context, ticketID string) ([]*entity.Comment, error) {
	comments, err := uc.comments.List(ctx, func(c *entity.Comment) bool {
		return c.TicketID == ticketID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	service.SortByTime(comments, func(c *entity.Comment) time.Time { return c.CreatedAt }, false)
	return comments, nil
}

// ListAll возвращает все комментарии, новые первыми
func (uc *CommentUseCase) ListAll(ctx context.Context) ([]*entity.Comment, error) {
	comments, err := uc.comments.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	service.SortByTime(comments, func(c *entity.Comment) time.Time { return c.CreatedAt }, true)
	return comments, nil
}

func (uc *CommentUseCase) Get(ctx context.Context, id string) (*entity.Comment, error) {
	comment, err := uc.comments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Comment with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

func (uc *CommentUseCase) Create(ctx context.Context, cmd CreateCommentCommand) (*entity.Comment, error) {
	if err := validateCommentContent(cmd.TicketID, cmd.UserID, cmd.Content); err != nil {
		return nil, err
	}

	if _, err := uc.tickets.Get(ctx, cmd.TicketID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Ticket with id %s not found", cmd.TicketID)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	comment := entity.NewComment(cmd.TicketID, cmd.UserID, cmd.Content, cmd.IsInternal, cmd.Attachments, uc.now())
	if err := uc.comments.Put(ctx, comment.ID, comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	uc.activity.Record(ctx, cmd.UserID, "comment_added", entity.EntityComment, comment.ID, map[string]interface{}{
		"ticketId":      cmd.TicketID,
		"contentLength": utf8.RuneCountInString(cmd.Content),
		"isInternal":    cmd.IsInternal,
	})
	uc.events.Dispatch(ctx, dto.NewEventDTO(dto.EventCommentCreated, dto.TicketTopic(cmd.TicketID), comment))

	return comment, nil
}

func (uc *CommentUseCase) Update(ctx context.Context, id string, cmd UpdateCommentCommand) (*entity.Comment, error) {
	if strings.TrimSpace(cmd.UpdatedBy) == "" {
		return nil, apperror.Validation("updatedBy is required")
	}

	comment, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Content != nil {
		if err := validateCommentContent(comment.TicketID, comment.UserID, *cmd.Content); err != nil {
			return nil, err
		}
		comment.Content = *cmd.Content
	}
	if cmd.Attachments != nil {
		comment.Attachments = *cmd.Attachments
	}
	comment.UpdatedAt = uc.now()

	if err := uc.comments.Put(ctx, comment.ID, comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	uc.activity.Record(ctx, cmd.UpdatedBy, "comment_updated", entity.EntityComment, id, map[string]interface{}{
		"ticketId": comment.TicketID,
	})
	return comment, nil
}

func (uc *CommentUseCase) Delete(ctx context.Context, id, deletedBy string) error {
	if strings.TrimSpace(deletedBy) == "" {
		return apperror.Validation("deletedBy is required")
	}

	comment, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Comment with id %s not found", id)
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	uc.activity.Record(ctx, deletedBy, "comment_deleted", entity.EntityComment, id, map[string]interface{}{
		"ticketId": comment.TicketID,
	})
	return nil
}

func validateCommentContent(ticketID, userID, content string) error {
	if strings.TrimSpace(ticketID) == "" {
		return apperror.Validation("Ticket ID is required")
	}
	if strings.TrimSpace(userID) == "" {
		return apperror.Validation("User ID is required")
	}
	if strings.TrimSpace(content) == "" {
		return apperror.Validation("Comment content is required")
	}
	if utf8.RuneCountInString(content) > entity.MaxCommentLength {
		return apperror.Validation("Comment content too long (max %d characters)", entity.MaxCommentLength)
	}
	return nil
}
