package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

// Event is a message published to the broker
type Event struct {
	Type       Type             `json:"type"`
	UserID     uuid.UUID        `json:"user_id"`
	BudgetID   *uuid.UUID       `json:"budget_id,omitempty"`
	ExpenseID  *uuid.UUID       `json:"expense_id,omitempty"`
	ShareID    *uuid.UUID       `json:"share_id,omitempty"`
	Status     string           `json:"status,omitempty"`
	Spent      *decimal.Decimal `json:"spent,omitempty"`
	Limit      *decimal.Decimal `json:"limit,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher sends events to other systems
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// AMQPPublisher publishes events as persistent JSON messages on a direct
// exchange, routed to one durable queue
type AMQPPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewAMQPPublisher dials url and declares the exchange, the queue and their
// binding
func NewAMQPPublisher(url, exchangeName, queueName string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set up exchange and queue: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := p.channel.QueueBind(p.queueName, p.queueName, p.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends e, giving up after five seconds
func (p *AMQPPublisher) Publish(ctx context.Context, e *Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.DebugContext(ctx, "Published event", "type", e.Type, "user_id", e.UserID, "exchange", p.exchangeName)
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
