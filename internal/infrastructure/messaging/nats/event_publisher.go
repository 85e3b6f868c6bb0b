package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dreschagin/qtrack/pkg/logger"
)

// StreamName - JetStream stream для доменных событий
const StreamName = "QTRACK_EVENTS"

// EventPublisher публикует доменные события в JetStream (реализует port.EventPublisher)
type EventPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewEventPublisher подключается к NATS и гарантирует наличие stream на subjectPrefix.>
func NewEventPublisher(natsURL, subjectPrefix string, log *logger.Logger) (*EventPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("qtrack"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, subjectPrefix); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("Connected to NATS", "url", natsURL, "stream", StreamName)

	return &EventPublisher{nc: nc, js: js, logger: log}, nil
}

func ensureStream(js nats.JetStreamContext, subjectPrefix string) error {
	subject := strings.TrimSuffix(subjectPrefix, ".") + ".>"

	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}

// PublishEvent публикует событие асинхронно; Nats-Msg-Id дает дедупликацию на стороне сервера
func (p *EventPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.New().String())
	msg.Header.Set("Content-Type", "application/json")

	if _, err := p.js.PublishMsgAsync(msg); err != nil {
		p.logger.Error("Failed to publish event", err, "subject", subject)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published", "subject", subject, "size", len(data))
	return nil
}

// Close дожидается подтверждений отправленных сообщений и закрывает соединение
func (p *EventPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		p.logger.Warn("Timed out waiting for NATS acks", "pending", p.js.PublishAsyncPending())
	}

	p.logger.Info("Closing NATS connection")
	return p.nc.Drain()
}
