// Package messaging publishes and consumes domain events over RabbitMQ or Kafka.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/erpsuite/gomicro/config"
)

// Routing keys shared between services
const (
	TopicOrderCreated = "order.created"
	TopicOrderShipped = "order.shipped"
)

// ErrNotConnected is returned while the broker connection is being re-established
var ErrNotConnected = errors.New("messaging: broker not connected")

// Message is a broker-agnostic delivery
type Message struct {
	ID         string
	RoutingKey string
	Body       []byte
}

// Publisher sends JSON-encoded events to a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// Handler processes one delivery
type Handler func(ctx context.Context, msg Message) error

// Consumer runs a handler over incoming deliveries until ctx is done
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Type
func NewPublisher(ctx context.Context, cfg *config.BrokerConfig) (Publisher, error) {
	switch cfg.Type {
	case "rabbitmq", "":
		conn, err := DialRabbit(ctx, cfg.URL, DefaultRetryPolicy())
		if err != nil {
			return nil, err
		}
		return NewRabbitPublisher(conn, cfg.Exchange), nil
	case "kafka":
		return NewKafkaPublisher(cfg.Brokers), nil
	default:
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
}

// NewConsumer builds a consumer of routingKey for the broker selected by cfg.Type.
// queue names the durable RabbitMQ queue; Kafka uses cfg.GroupID instead.
func NewConsumer(ctx context.Context, cfg *config.BrokerConfig, queue, routingKey string) (Consumer, error) {
	switch cfg.Type {
	case "rabbitmq", "":
		conn, err := DialRabbit(ctx, cfg.URL, DefaultRetryPolicy())
		if err != nil {
			return nil, err
		}
		return NewRabbitConsumer(conn, cfg.Exchange, queue, routingKey), nil
	case "kafka":
		return NewKafkaConsumer(cfg.Brokers, routingKey, cfg.GroupID), nil
	default:
		return nil, fmt.Errorf("unsupported broker type: %s", cfg.Type)
	}
}
