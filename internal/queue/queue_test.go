package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	declared   []string
	kinds      []string
	published  []published
	declareErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	c.declared = append(c.declared, name)
	c.kinds = append(c.kinds, kind)
	return c.declareErr
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	c.published = append(c.published, published{exchange, key, msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisherRoutesByKind(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "graph_events")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "graph_events" || ch.kinds[0] != "topic" {
		t.Fatalf("expected topic exchange declaration, got %v %v", ch.declared, ch.kinds)
	}

	id := identifier.NewEntityID(identifier.OwnedByID{1}, identifier.EntityUUID{2})
	event := store.EntityEvent{
		Kind: store.EntityUpdated,
		Metadata: knowledge.EntityMetadata{
			EditionID:    identifier.NewEntityEditionID(id, 3, identifier.EntityVersion{}),
			EntityTypeID: identifier.NewVersionedURI("https://example.com/types/entity-type/person/", 1),
		},
	}
	for range 2 {
		if err := p.Publish(context.Background(), event); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	if len(ch.published) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ch.published))
	}
	msg := ch.published[0]
	if msg.exchange != "graph_events" || msg.key != "entity.updated" {
		t.Fatalf("expected entity.updated on graph_events, got %s on %s", msg.key, msg.exchange)
	}
	if msg.msg.MessageId == "" || msg.msg.MessageId == ch.published[1].msg.MessageId {
		t.Fatalf("expected unique message ids, got %q and %q", msg.msg.MessageId, ch.published[1].msg.MessageId)
	}
	if msg.msg.DeliveryMode != amqp091.Persistent || msg.msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing %+v", msg.msg)
	}

	var body struct {
		Kind     string `json:"kind"`
		Metadata struct {
			EntityTypeID string `json:"entityTypeId"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(msg.msg.Body, &body); err != nil {
		t.Fatalf("expected json body, got %v", err)
	}
	if body.Kind != "entity.updated" || body.Metadata.EntityTypeID != "https://example.com/types/entity-type/person/v/1" {
		t.Fatalf("unexpected body %s", msg.msg.Body)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel to be closed, got %v", err)
	}
}

func TestNewPublisherFailsOnDeclare(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := NewPublisher(ch, "graph_events"); err == nil {
		t.Fatal("expected declaration error")
	}
}
