package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dreschagin/qtrack/internal/application/port"
)

// Logger - тонкая обертка над zap.SugaredLogger с API вида msg + key/value.
type Logger struct {
	sugar *zap.SugaredLogger
	level Level

	mu        sync.RWMutex
	publisher port.LogPublisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func New(level string) *Logger {
	lvl := parseLevel(level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zapLevel(lvl),
	)

	return &Logger{
		sugar: zap.New(core).Sugar(),
		level: lvl,
	}
}

// SetLogPublisher подключает внешний приемник логов (например, CloudWatch Logs).
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publisher = publisher
}

// With возвращает дочерний логгер с постоянными полями.
func (l *Logger) With(args ...interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &Logger{
		sugar:     l.sugar.With(args...),
		level:     l.level,
		publisher: l.publisher,
	}
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.sugar.Debugw(msg, args...)
		l.publish(port.LogLevelDebug, msg, args)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.sugar.Infow(msg, args...)
		l.publish(port.LogLevelInfo, msg, args)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.sugar.Warnw(msg, args...)
		l.publish(port.LogLevelWarn, msg, args)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.sugar.Errorw(msg, args...)
		l.publish(port.LogLevelError, msg, args)
	}
}

// Sync сбрасывает буферы zap.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) publish(level port.LogLevel, msg string, args []interface{}) {
	l.mu.RLock()
	publisher := l.publisher
	l.mu.RUnlock()

	if publisher == nil {
		return
	}

	entry := port.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    fieldsFromArgs(args),
	}

	// Publisher буферизует записи сам, поэтому ошибку пишем только в stderr,
	// чтобы не зациклиться на собственном логировании.
	if err := publisher.Publish(context.Background(), entry); err != nil {
		fmt.Fprintf(os.Stderr, "log publisher failed: %v\n", err)
	}
}

func fieldsFromArgs(args []interface{}) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return fields
}
