package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"cert-quiz/internal/quiz"
)

const (
	DefaultExchange = "quiz.events"

	AttemptGradedKey = "attempt.graded"
)

type Envelope struct {
	EventType  string           `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Data       quiz.GradedEvent `json:"data"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends quiz events to a topic exchange. With no broker URI it runs
// disabled and only logs what it would have sent.
type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	enabled  bool
	logger   *zap.Logger
}

func NewPublisher(uri, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if uri == "" {
		logger.Warn("amqp uri is empty, event publishing is disabled")
		return &Publisher{exchange: exchange, logger: logger}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		enabled:  true,
		logger:   logger,
	}, nil
}

func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) PublishAttemptGraded(ctx context.Context, graded quiz.GradedEvent) error {
	return p.publish(ctx, AttemptGradedKey, Envelope{
		EventType:  AttemptGradedKey,
		OccurredAt: time.Now().UTC(),
		Data:       graded,
	})
}

func (p *Publisher) publish(ctx context.Context, routingKey string, envelope Envelope) error {
	if !p.enabled {
		p.logger.Debug("event publishing disabled, skipping", zap.String("routing_key", routingKey))
		return nil
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    envelope.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.logger.Debug("published event", zap.String("routing_key", routingKey))
	return nil
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("closing amqp channel failed", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
