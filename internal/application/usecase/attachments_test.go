package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
)

type putCall struct {
	key         string
	contentType string
	body        []byte
}

type mockAttachmentStorage struct {
	calls []putCall
	err   error
}

func (m *mockAttachmentStorage) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	m.calls = append(m.calls, putCall{key: key, contentType: contentType, body: body})
	if m.err != nil {
		return "", m.err
	}
	return "https://example.com/" + key, nil
}

func (m *mockAttachmentStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://example.com/" + key + "?signed", nil
}

func TestAttachmentUploadSuccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	storage := &mockAttachmentStorage{}
	uc := NewAttachmentUseCase(storage, env.store, env.activity, AttachmentsConfig{KeyPrefix: "attachments", MaxBytes: 1024}, env.log)

	ticket, _ := env.tickets.Create(ctx, validTicket())

	item, err := uc.Upload(ctx, UploadAttachmentCommand{
		TicketID:    ticket.ID,
		FileName:    "crash log.txt",
		ContentType: "text/plain",
		Data:        []byte("panic: nil map"),
		UploadedBy:  "qa",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	expectedPrefix := "attachments/" + ticket.ID + "/"
	if !strings.HasPrefix(item.Key, expectedPrefix) || !strings.HasSuffix(item.Key, "-crash_log.txt") {
		t.Fatalf("unexpected key: %s", item.Key)
	}
	if len(storage.calls) != 1 || storage.calls[0].contentType != "text/plain" {
		t.Fatalf("unexpected storage calls: %+v", storage.calls)
	}

	stored, _ := env.tickets.Get(ctx, ticket.ID)
	if len(stored.Attachments) != 1 || stored.Attachments[0] != item.Key {
		t.Fatalf("expected key appended to ticket, got %v", stored.Attachments)
	}

	items, err := uc.List(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 1 || !strings.HasSuffix(items[0].URL, "?signed") {
		t.Fatalf("unexpected list: %+v", items)
	}
}

func TestAttachmentUploadValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	storage := &mockAttachmentStorage{}
	uc := NewAttachmentUseCase(storage, env.store, env.activity, AttachmentsConfig{MaxBytes: 8}, env.log)

	ticket, _ := env.tickets.Create(ctx, validTicket())

	tests := []struct {
		name     string
		command  UploadAttachmentCommand
		wantKind apperror.Kind
	}{
		{
			name:     "bad file name",
			command:  UploadAttachmentCommand{TicketID: ticket.ID, FileName: "a|b?.exe", Data: []byte("x"), UploadedBy: "qa"},
			wantKind: apperror.KindValidation,
		},
		{
			name:     "empty file",
			command:  UploadAttachmentCommand{TicketID: ticket.ID, FileName: "a.txt", UploadedBy: "qa"},
			wantKind: apperror.KindValidation,
		},
		{
			name:     "too large",
			command:  UploadAttachmentCommand{TicketID: ticket.ID, FileName: "a.txt", Data: []byte("123456789"), UploadedBy: "qa"},
			wantKind: apperror.KindValidation,
		},
		{
			name:     "unknown ticket",
			command:  UploadAttachmentCommand{TicketID: "missing", FileName: "a.txt", Data: []byte("x"), UploadedBy: "qa"},
			wantKind: apperror.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Upload(ctx, tt.command)
			if !apperror.Is(err, tt.wantKind) {
				t.Fatalf("expected %s error, got %v", tt.wantKind, err)
			}
		})
	}

	if len(storage.calls) != 0 {
		t.Fatalf("invalid uploads must not reach storage, got %d calls", len(storage.calls))
	}
}

func TestAttachmentUploadStorageFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	storage := &mockAttachmentStorage{err: errors.New("s3 unavailable")}
	uc := NewAttachmentUseCase(storage, env.store, env.activity, AttachmentsConfig{}, env.log)

	ticket, _ := env.tickets.Create(ctx, validTicket())

	_, err := uc.Upload(ctx, UploadAttachmentCommand{TicketID: ticket.ID, FileName: "a.txt", Data: []byte("x"), UploadedBy: "qa"})
	if err == nil || apperror.KindOf(err) != apperror.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}

	stored, _ := env.tickets.Get(ctx, ticket.ID)
	if len(stored.Attachments) != 0 {
		t.Fatal("failed upload must not be recorded on the ticket")
	}

	var disabled *AttachmentUseCase
	if disabled.Enabled() {
		t.Fatal("nil use case must report disabled")
	}
}
