package port

import (
	"context"
	"time"
)

// LogLevel - уровень записи для внешнего приемника логов
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry - запись лога; Fields содержит пары key/value из вызова logger
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Fields    map[string]interface{}
}

// LogPublisher копирует логи сервиса во внешнюю систему (CloudWatch Logs).
// Реализация буферизует записи; Flush вызывается при остановке.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
	PublishBatch(ctx context.Context, entries []LogEntry) error
	Flush(ctx context.Context) error
}
