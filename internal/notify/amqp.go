package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"ipsentry/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const amqpDialTimeout = 10 * time.Second

// AMQPChannel publishes every message to a RabbitMQ exchange.
// The connection is opened lazily and reopened after it drops.
type AMQPChannel struct {
	config *config.AMQPConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPChannel creates new AMQP channel
func NewAMQPChannel(cfg *config.AMQPConfig, logger *zap.Logger) (*AMQPChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if _, err := amqp.ParseURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid amqp url: %w", err)
	}

	return &AMQPChannel{
		config: cfg,
		logger: logger,
	}, nil
}

// Type returns the channel type
func (c *AMQPChannel) Type() ChannelType {
	return ChannelAMQP
}

// Send publishes one persistent message
func (c *AMQPChannel) Send(ctx context.Context, msg *Message) error {
	pub, err := newPublishing(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channel(ctx)
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, c.config.Exchange, c.config.RoutingKey, false, false, pub); err != nil {
		c.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// newPublishing builds the persistent JSON publishing for msg
func newPublishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.At,
		Type:         string(msg.Kind),
		AppId:        "ipsentry",
		Body:         body,
	}, nil
}

// channel returns an open channel, dialing when needed. Caller holds mu.
func (c *AMQPChannel) channel(ctx context.Context) (*amqp.Channel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}
	c.reset()

	conn, err := amqp.DialConfig(c.config.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c.logger.Debug("Connected to RabbitMQ", zap.String("exchange", c.config.Exchange))
	c.conn, c.ch = conn, ch
	return ch, nil
}

// contextDialer dials under ctx and bounds the AMQP handshake by its deadline.
// The library clears the deadline once the connection is open.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		d := &net.Dialer{Timeout: amqpDialTimeout}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(amqpDialTimeout)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// reset drops the current connection. Caller holds mu.
func (c *AMQPChannel) reset() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close closes the connection
func (c *AMQPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return nil
}
