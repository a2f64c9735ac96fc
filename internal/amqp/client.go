package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	maxFailures    = 3
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Options configures a Publisher.
type Options struct {
	URL        string
	Exchange   string
	RoutingKey string
	// MaxRetries is the number of reconnect attempts after a connection error.
	MaxRetries int
}

// Publisher sends reports to a direct exchange. It connects lazily and
// reconnects after connection errors.
type Publisher struct {
	url          string
	exchangeName string
	routingKey   string
	maxRetries   int

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	cb *gobreaker.CircuitBreaker
}

func NewPublisher(opts Options) *Publisher {
	return &Publisher{
		url:          opts.URL,
		exchangeName: opts.Exchange,
		routingKey:   opts.RoutingKey,
		maxRetries:   opts.MaxRetries,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "amqp-publisher",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// connect opens the connection and declares the exchange. Callers hold p.mu.
func (p *Publisher) connect() error {
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	p.closeLocked()

	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg *ReportMessage, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Headers:      amqp091.Table{"granularity": msg.Report.Granularity},
			Body:         body,
		},
	)
}

// PublishReport publishes msg, retrying connection errors with exponential
// backoff. It fails fast while the circuit breaker is open.
func (p *Publisher) PublishReport(ctx context.Context, msg *ReportMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	for attempt := 0; ; attempt++ {
		_, err = p.cb.Execute(func() (interface{}, error) {
			return nil, p.publish(ctx, msg, body)
		})
		if err == nil {
			slog.InfoContext(ctx, "Published report message",
				"id", msg.ID,
				"granularity", msg.Report.Granularity,
				"exchange", p.exchangeName,
				"routing_key", p.routingKey)
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("circuit breaker is open: %w", err)
		}
		if !isConnectionError(err) || attempt >= p.maxRetries {
			return fmt.Errorf("publish report: %w", err)
		}

		p.mu.Lock()
		p.closeLocked()
		p.mu.Unlock()

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection error, retrying",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
