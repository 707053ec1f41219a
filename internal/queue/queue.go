package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/chronograph/internal/util"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// Connect dials the broker, retrying a few times while it starts up.
func Connect(ctx context.Context, cfg util.RabbitMQConfig) (*amqp091.Connection, error) {
	conn, err := util.RetryWithContext(ctx, 5, func(ctx context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(cfg.URL())
		if err != nil {
			logger.Warn("[Queue] Failed to connect to RabbitMQ", "host", cfg.Host, "err", err)
		}
		return conn, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ at %s: %w", cfg.Host, err)
	}
	return conn, nil
}

type publishChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends entity change events to a topic exchange. The routing key
// is the event kind, so consumers can bind to "entity.*" or a single kind.
type Publisher struct {
	ch       publishChannel
	exchange string
	mu       sync.Mutex
}

var _ store.EventSink = (*Publisher)(nil)

// NewPublisher declares exchange as a durable topic exchange on ch.
func NewPublisher(ch publishChannel, exchange string) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

func (p *Publisher) Publish(ctx context.Context, event store.EntityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		MessageId:    id,
		Type:         string(event.Kind),
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, string(event.Kind), false, false, publishing)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
