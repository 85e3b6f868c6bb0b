package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/pkg/logger"
)

var fileNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._ -]{1,128}$`)

type UploadAttachmentCommand struct {
	TicketID    string
	FileName    string
	ContentType string
	Data        []byte
	UploadedBy  string
}

type AttachmentItem struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type AttachmentsConfig struct {
	KeyPrefix string
	MaxBytes  int
}

// AttachmentUseCase загружает вложения тикетов в объектное хранилище
type AttachmentUseCase struct {
	storage  port.AttachmentStorage
	tickets  *repository.Collection[entity.Ticket]
	activity *ActivityLogger
	config   AttachmentsConfig
	logger   *logger.Logger
}

func NewAttachmentUseCase(
	storage port.AttachmentStorage,
	store repository.Store,
	activity *ActivityLogger,
	config AttachmentsConfig,
	log *logger.Logger,
) *AttachmentUseCase {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "attachments"
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 10 * 1024 * 1024
	}
	return &AttachmentUseCase{
		storage:  storage,
		tickets:  repository.NewCollection[entity.Ticket](store, repository.CollectionTickets),
		activity: activity,
		config:   config,
		logger:   log,
	}
}

// Enabled сообщает, настроено ли хранилище
func (uc *AttachmentUseCase) Enabled() bool {
	return uc != nil && uc.storage != nil
}

func (uc *AttachmentUseCase) Upload(ctx context.Context, cmd UploadAttachmentCommand) (*AttachmentItem, error) {
	if !uc.Enabled() {
		return nil, fmt.Errorf("attachment storage is not configured")
	}

	fileName := strings.TrimSpace(path.Base(cmd.FileName))
	if !fileNameRegex.MatchString(fileName) || fileName == "." || fileName == ".." {
		return nil, apperror.Validation("Invalid file name")
	}
	if len(cmd.Data) == 0 {
		return nil, apperror.Validation("File is empty")
	}
	if len(cmd.Data) > uc.config.MaxBytes {
		return nil, apperror.Validation("File too large (max %d bytes)", uc.config.MaxBytes)
	}
	if strings.TrimSpace(cmd.UploadedBy) == "" {
		return nil, apperror.Validation("uploadedBy is required")
	}

	ticket, err := uc.tickets.Get(ctx, cmd.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Ticket with id %s not found", cmd.TicketID)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	contentType := cmd.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := uc.buildKey(ticket.ID, fileName)
	url, err := uc.storage.PutObject(ctx, key, contentType, cmd.Data)
	if err != nil {
		uc.logger.Error("Failed to upload attachment", err,
			"ticket_id", ticket.ID,
			"key", key,
		)
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	ticket.Attachments = append(ticket.Attachments, key)
	ticket.UpdatedAt = time.Now()
	if err := uc.tickets.Put(ctx, ticket.ID, ticket); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	uc.activity.Record(ctx, cmd.UploadedBy, "attachment_added", entity.EntityTicket, ticket.ID, map[string]interface{}{
		"key":  key,
		"size": len(cmd.Data),
	})

	return &AttachmentItem{Key: key, URL: url}, nil
}

// List возвращает вложения тикета с URL для чтения
func (uc *AttachmentUseCase) List(ctx context.Context, ticketID string) ([]AttachmentItem, error) {
	if !uc.Enabled() {
		return nil, fmt.Errorf("attachment storage is not configured")
	}

	ticket, err := uc.tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Ticket with id %s not found", ticketID)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	items := make([]AttachmentItem, 0, len(ticket.Attachments))
	for _, key := range ticket.Attachments {
		url, err := uc.storage.GetObjectURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to build URL for %s: %w", key, err)
		}
		items = append(items, AttachmentItem{Key: key, URL: url})
	}
	return items, nil
}

func (uc *AttachmentUseCase) buildKey(ticketID, fileName string) string {
	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	name := strings.ReplaceAll(fileName, " ", "_")
	return fmt.Sprintf("%s/%s/%s-%s", prefix, ticketID, uuid.New().String(), name)
}
