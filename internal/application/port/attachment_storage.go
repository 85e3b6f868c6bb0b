package port

import "context"

// AttachmentStorage определяет интерфейс объектного хранилища вложений тикетов.
type AttachmentStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// GetObjectURL возвращает URL для чтения существующего объекта.
	GetObjectURL(ctx context.Context, key string) (string, error)
}
