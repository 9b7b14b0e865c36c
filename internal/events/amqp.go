package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueue is the queue lesson events are routed to.
	DefaultQueue = "lesson.events"
	// DefaultDialTimeout bounds the TCP connect and AMQP handshake.
	DefaultDialTimeout = 5 * time.Second
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes lesson events as persistent JSON messages to a
// durable RabbitMQ queue. The connection is opened lazily and re-dialed after
// a failure.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *slog.Logger
	dial   func(url string, timeout time.Duration) (amqpChannel, func() error, error)

	// DialTimeout overrides DefaultDialTimeout when positive.
	DialTimeout time.Duration

	// sem serializes access to the channel; waiting on it honours ctx.
	sem       chan struct{}
	channel   amqpChannel
	closeConn func() error
	closed    bool
}

// NewAMQPPublisher creates a publisher for url. An empty queue uses DefaultQueue.
func NewAMQPPublisher(url, queue string, logger *slog.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{
		url:    url,
		queue:  queue,
		logger: logger.With("component", "events", "queue", queue),
		dial:   dialAMQP,
		sem:    make(chan struct{}, 1),
	}
}

func dialAMQP(url string, timeout time.Duration) (amqpChannel, func() error, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("events: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events: open channel: %w", err)
	}
	return ch, conn.Close, nil
}

// Publish sends event. A failed publish drops the channel so the next call
// reconnects. Publish gives up with ctx.Err() if ctx ends while another
// publish holds the connection.
func (p *AMQPPublisher) Publish(ctx context.Context, event LessonEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("events: publish %s: %w", event.Type, ctx.Err())
	}
	defer func() { <-p.sem }()

	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	if err := p.ensureChannelLocked(); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         event.Type,
		MessageId:    event.LessonID + ":" + event.Type + ":" + event.OccurredAt.Format("20060102T150405.000000000"),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	p.closed = true
	return p.resetLocked()
}

func (p *AMQPPublisher) ensureChannelLocked() error {
	if p.channel != nil {
		return nil
	}

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	ch, closeConn, err := p.dial(p.url, timeout)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return fmt.Errorf("events: declare queue: %w", err)
	}

	p.channel = ch
	p.closeConn = closeConn
	p.logger.Info("connected to broker")
	return nil
}

func (p *AMQPPublisher) resetLocked() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.closeConn != nil {
		errs = append(errs, p.closeConn())
	}
	p.channel = nil
	p.closeConn = nil
	return errors.Join(errs...)
}
