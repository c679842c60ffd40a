// Package events publishes forum domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"forum/internal/middleware"
	"forum/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "forum_events"

// DefaultPublishTimeout bounds one publish when the caller sets no deadline.
// A broker applying flow control would otherwise stall the caller.
const DefaultPublishTimeout = 2 * time.Second

// Event types shared by the websocket stream and the broker.
const (
	PostCreated     = "post_created"
	PostUpdated     = "post_updated"
	PostDeleted     = "post_deleted"
	PostLiked       = "post_liked"
	PostUnliked     = "post_unliked"
	CommentCreated  = "comment_created"
	CommentUpdated  = "comment_updated"
	CommentDeleted  = "comment_deleted"
	UserRoleChanged = "user_role_changed"
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("event publisher closed")

// Event is the envelope for every published event.
type Event struct {
	Type       string    `json:"type"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New stamps an event of the given type.
func New(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()}
}

// RoutingKey maps an event type to its topic routing key, e.g.
// comment_created becomes comment.created.
func RoutingKey(eventType string) string {
	return strings.Replace(eventType, "_", ".", 1)
}

// Publisher hands events to a broker.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events on a single channel. amqp channels are
// not safe for concurrent publishing, so Publish serializes on mu.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	closed   bool
}

// DialAMQP connects to url and declares exchange as a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	middleware.Logger.Info("RabbitMQ publisher ready", slog.String("exchange", exchange))
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newAMQPPublisher(ch channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	key := RoutingKey(evt.Type)
	body, err := json.Marshal(evt)
	if err != nil {
		observability.EventsPublished.WithLabelValues(key, "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPublishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		observability.EventsPublished.WithLabelValues(key, "error").Inc()
		return ErrClosed
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Body:         body,
	})
	if err != nil {
		observability.EventsPublished.WithLabelValues(key, "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	observability.EventsPublished.WithLabelValues(key, "ok").Inc()
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
