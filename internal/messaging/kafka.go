// Package messaging wraps the Kafka producer and consumer used for the fraud
// scoring pipeline.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes a single message to one topic.
type Producer interface {
	Publish(ctx context.Context, key string, headers map[string]string, message interface{}) error
	Close() error
}

// Config carries the Kafka connection settings for one topic.
type Config struct {
	Brokers      []string
	Topic        string
	GroupID      string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// KafkaProducer implements Producer on top of segmentio/kafka-go. A hash
// balancer plus a constant key pins all feature messages to one partition.
type KafkaProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaProducer creates a producer for the configured topic. RequireAll
// acks: a transfer must not commit unless the broker durably accepted the
// feature vector.
func NewKafkaProducer(cfg Config, logger *zap.Logger) *KafkaProducer {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: writeTimeout,
		MaxAttempts:  3,
	}

	return &KafkaProducer{writer: writer, logger: logger}
}

// Publish marshals message as JSON and writes it synchronously. The call
// blocks until the broker acknowledges or ctx expires.
func (p *KafkaProducer) Publish(ctx context.Context, key string, headers map[string]string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			zap.Error(err),
			zap.String("topic", p.writer.Topic),
			zap.String("key", key))
		return err
	}

	return nil
}

// Close closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, key string, value []byte) error

// KafkaConsumer reads from one topic within a consumer group.
type KafkaConsumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewKafkaConsumer creates a consumer for the configured topic and group.
func NewKafkaConsumer(cfg Config, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	})

	return &KafkaConsumer{reader: reader, logger: logger}
}

// Run consumes messages until ctx is cancelled. Handler errors are logged and
// the offset is still advanced; the scoring pipeline tolerates skipped
// messages but must never stall.
func (c *KafkaConsumer) Run(ctx context.Context, handler MessageHandler) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := handler(ctx, string(msg.Key), msg.Value); err != nil {
			c.logger.Error("Message handler failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset))
		}
	}
}

// Close closes the underlying reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
