// Package amqp publishes close-out domain events to RabbitMQ. Publishing
// is best-effort: the ledger transaction has already committed by the time
// an event goes out, so a broker failure is logged and never surfaces to
// the user.
package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"

	"homebudget/internal/storage"
)

const (
	routingKeyMonthClosed = "month.closed"
	routingKeyLedgerReset = "ledger.reset"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
}

// NewClient dials the broker with bounded exponential backoff and declares
// the topic exchange events are published to.
func NewClient(ctx context.Context, url, exchangeName string) (*Client, error) {
	var conn *amqp091.Connection
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = amqp091.Dial(url)
		if dialErr != nil {
			return retry.RetryableError(dialErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// PublishMonthClosed implements services.EventPublisher.
func (c *Client) PublishMonthClosed(ctx context.Context, userID int64, result storage.CloseOutResult) error {
	msg := &MonthClosedMessage{
		UserID:           userID,
		Month:            result.Month,
		IncomeCents:      result.IncomeCents,
		ExpenseCents:     result.ExpenseCents,
		NetCents:         result.NetCents,
		ArchivedIncomes:  result.ArchivedIncomes,
		ArchivedExpenses: result.ArchivedExpenses,
		SavingsUpdated:   result.SavingsUpdated,
		Timestamp:        time.Now(),
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal month-closed message: %w", err)
	}
	return c.publish(ctx, routingKeyMonthClosed, body)
}

// PublishLedgerReset implements services.EventPublisher.
func (c *Client) PublishLedgerReset(ctx context.Context, userID int64) error {
	msg := &LedgerResetMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal ledger-reset message: %w", err)
	}
	return c.publish(ctx, routingKeyLedgerReset, body)
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
