package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"go.uber.org/zap"
)

// Writer is the subset of *kafka.Writer used by KafkaPublisher
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the subset of *kafka.Reader used by KafkaConsumer
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const headerMessageID = "message-id"

// KafkaPublisher writes each routing key to the topic of the same name
type KafkaPublisher struct {
	writer Writer
}

// NewKafkaPublisher creates a publisher for brokers
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaPublisherWithWriter allows injecting a test writer
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish marshals payload to JSON and writes it to the routingKey topic
func (p *KafkaPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	id := uuid.NewString()
	msg := kafka.Message{
		Topic: routingKey,
		Key:   []byte(id),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: headerMessageID, Value: []byte(id)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads one topic inside a consumer group. Offsets are
// committed after the handler returns, whether or not it failed.
type KafkaConsumer struct {
	reader  Reader
	topic   string
	backoff time.Duration
}

// NewKafkaConsumer creates a group consumer for topic
func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return NewKafkaConsumerWithReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	}), topic)
}

// NewKafkaConsumerWithReader allows injecting a test reader
func NewKafkaConsumerWithReader(r Reader, topic string) *KafkaConsumer {
	return &KafkaConsumer{reader: r, topic: topic, backoff: time.Second}
}

// Consume blocks until ctx is done
func (c *KafkaConsumer) Consume(ctx context.Context, handler Handler) error {
	log := logger.GetLogger().With(zap.String("topic", c.topic))
	log.Info("Kafka consumer started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Error fetching message", zap.Error(err))
			if err := sleep(ctx, c.backoff); err != nil {
				return nil
			}
			continue
		}

		msg := Message{ID: messageID(m), RoutingKey: m.Topic, Body: m.Value}
		handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		err = handler(handlerCtx, msg)
		cancel()
		if err != nil {
			log.Error("Message handler failed, dropping message",
				zap.String("message_id", msg.ID),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Error("Failed to commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Close closes the underlying reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func messageID(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == headerMessageID {
			return string(h.Value)
		}
	}
	return string(m.Key)
}
