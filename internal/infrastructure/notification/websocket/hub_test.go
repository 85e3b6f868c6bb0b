package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/pkg/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) *dto.EventDTO {
	t.Helper()
	select {
	case event := <-c.send:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHubDeliversOnlyToSubscribedTopics(t *testing.T) {
	hub := startHub(t)
	log := logger.New("error")

	quality := NewClient(hub, nil, []string{dto.TopicQuality}, log)
	ticket := NewClient(hub, nil, ParseTopics(" ticket:42 , tickets"), log)
	hub.Register(quality)
	hub.Register(ticket)

	hub.Publish(dto.TicketTopic("42"), dto.NewEventDTO(dto.EventTicketUpdated, dto.TicketTopic("42"), nil))
	hub.Publish(dto.TopicQuality, dto.NewEventDTO(dto.EventQualityEvaluated, dto.TopicQuality, nil))

	if got := receive(t, ticket); got.Type != dto.EventTicketUpdated {
		t.Fatalf("unexpected event for ticket subscriber: %s", got.Type)
	}
	if got := receive(t, quality); got.Type != dto.EventQualityEvaluated {
		t.Fatalf("unexpected event for quality subscriber: %s", got.Type)
	}

	select {
	case extra := <-quality.send:
		t.Fatalf("quality subscriber got foreign event %s", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}

	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubSubscribeAndUnregister(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, nil, logger.New("error"))
	hub.Register(client)

	hub.subscribe(client, []string{"ticket:7"}, true)
	if topics := client.Topics(); len(topics) != 1 || topics[0] != "ticket:7" {
		t.Fatalf("unexpected topics: %v", topics)
	}

	hub.Publish("ticket:7", dto.NewEventDTO(dto.EventCommentCreated, "ticket:7", nil))
	if got := receive(t, client); got.Topic != "ticket:7" {
		t.Fatalf("unexpected topic %s", got.Topic)
	}

	hub.Unregister(client)
	if _, ok := <-client.send; ok {
		t.Fatal("expected send channel to be closed after unregister")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}
}

func TestPublishRewritesTopic(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, []string{dto.TopicTickets}, logger.New("error"))
	hub.Register(client)

	original := dto.NewEventDTO(dto.EventTicketCreated, "ticket:1", nil)
	hub.Publish(dto.TopicTickets, original)

	got := receive(t, client)
	if got.Topic != dto.TopicTickets {
		t.Fatalf("expected topic %s, got %s", dto.TopicTickets, got.Topic)
	}
	if original.Topic != "ticket:1" {
		t.Fatal("Publish must not mutate the caller's event")
	}
}
