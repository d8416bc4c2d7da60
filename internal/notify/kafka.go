package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ipsentry/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaChannel publishes every message as a JSON event, keyed by address
type KafkaChannel struct {
	config *config.KafkaConfig
	logger *zap.Logger
	writer *kafka.Writer
}

// NewKafkaChannel creates new Kafka channel
func NewKafkaChannel(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaChannel, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	return &KafkaChannel{
		config: cfg,
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  1,
			WriteTimeout: writeTimeout,
		},
	}, nil
}

// Type returns the channel type
func (c *KafkaChannel) Type() ChannelType {
	return ChannelKafka
}

// Send writes one record
func (c *KafkaChannel) Send(ctx context.Context, msg *Message) error {
	record, err := newKafkaMessage(msg)
	if err != nil {
		return err
	}

	if err := c.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// newKafkaMessage builds the record for msg, keyed by address so that one
// host's events stay on one partition
func newKafkaMessage(msg *Message) (kafka.Message, error) {
	value, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(msg.Address.String()),
		Value: value,
		Time:  msg.At,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(msg.Kind)},
			{Key: "id", Value: []byte(msg.ID)},
		},
	}, nil
}

// Close flushes and closes the writer
func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
