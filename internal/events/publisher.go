package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/rabbitmq/amqp091-go"
)

// Defaults applied when the exchange or routing key is not configured.
const (
	DefaultExchange   = "spendwise"
	DefaultRoutingKey = "transactions.imported"
	publishTimeout    = 5 * time.Second
)

// Config describes where import events go. An empty URL disables publishing.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Enabled reports whether a broker URL is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// Validate checks the broker URL scheme and fills defaults.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid AMQP URL: %w", common.ErrInvalidConfig, err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return fmt.Errorf("%w: AMQP URL must use amqp:// or amqps://", common.ErrInvalidConfig)
	}
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.RoutingKey == "" {
		c.RoutingKey = DefaultRoutingKey
	}
	return nil
}

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	conn       *amqp091.Connection
	channel    channel
	logger     *slog.Logger
	exchange   string
	routingKey string
	retryOpts  service.RetryOptions
}

// NewPublisher returns an AMQP publisher, or a no-op publisher when cfg has no URL.
func NewPublisher(cfg Config) (service.EventPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return NopPublisher{}, nil
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, cfg)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, cfg Config) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     slog.Default().With("component", "events"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}

	err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return p, nil
}

// PublishTransactionsImported publishes one TransactionsImported message.
// An empty batch publishes nothing.
func (p *AMQPPublisher) PublishTransactionsImported(ctx context.Context, source string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	msg := NewTransactionsImported(source, ids)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		pubErr := p.channel.PublishWithContext(
			pubCtx,
			p.exchange,   // exchange
			p.routingKey, // routing key
			false,        // mandatory
			false,        // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if pubErr != nil {
			return &common.RetryableError{Err: pubErr, Retryable: isConnectionError(pubErr)}
		}
		return nil
	}, p.retryOpts)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.InfoContext(ctx, "Published transactions imported event",
		"source", source,
		"count", msg.Count,
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// isConnectionError reports whether err looks like a dropped broker connection.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// NopPublisher discards every event.
type NopPublisher struct{}

// PublishTransactionsImported does nothing.
func (NopPublisher) PublishTransactionsImported(context.Context, string, []string) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error {
	return nil
}

var (
	_ service.EventPublisher = (*AMQPPublisher)(nil)
	_ service.EventPublisher = NopPublisher{}
)
