package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"go.uber.org/zap"
)

const handlerTimeout = 30 * time.Second

var errDeliveriesClosed = errors.New("messaging: delivery channel closed")

// amqpChannel is the subset of *amqp.Channel used here
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type dialFunc func(url string) (amqpConnection, error)

type realConnection struct {
	*amqp.Connection
}

func (r realConnection) Channel() (amqpChannel, error) {
	ch, err := r.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return realConnection{conn}, nil
}

// RabbitConnection owns one AMQP connection and re-dials it in the
// background whenever the broker drops it.
type RabbitConnection struct {
	url    string
	dial   dialFunc
	policy RetryPolicy

	mu     sync.RWMutex
	conn   amqpConnection
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// DialRabbit connects to url, retrying per policy, and starts the reconnect supervisor
func DialRabbit(ctx context.Context, url string, policy RetryPolicy) (*RabbitConnection, error) {
	return dialRabbit(ctx, url, policy, dialAMQP)
}

func dialRabbit(ctx context.Context, url string, policy RetryPolicy, dial dialFunc) (*RabbitConnection, error) {
	rc := &RabbitConnection{
		url:    url,
		dial:   dial,
		policy: policy,
		done:   make(chan struct{}),
	}

	conn, err := rc.connect(ctx, policy.MaxAttempts)
	if err != nil {
		return nil, err
	}
	rc.conn = conn

	superviseCtx, cancel := context.WithCancel(context.Background())
	rc.cancel = cancel
	go rc.supervise(superviseCtx, conn)

	logger.GetLogger().Info("Connected to RabbitMQ")
	return rc, nil
}

func (rc *RabbitConnection) connect(ctx context.Context, maxAttempts int) (amqpConnection, error) {
	var lastErr error
	for attempt := 0; maxAttempts == 0 || attempt < maxAttempts; attempt++ {
		conn, err := rc.dial(rc.url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.GetLogger().Warn("RabbitMQ dial failed", zap.Int("attempt", attempt+1), zap.Error(err))

		if maxAttempts != 0 && attempt+1 == maxAttempts {
			break
		}
		if err := sleep(ctx, rc.policy.Next(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", maxAttempts, lastErr)
}

func (rc *RabbitConnection) supervise(ctx context.Context, conn amqpConnection) {
	defer close(rc.done)
	log := logger.GetLogger()

	for {
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-ctx.Done():
			return
		case reason := <-notify:
			if ctx.Err() != nil {
				return
			}
			log.Warn("RabbitMQ connection lost, reconnecting", zap.Any("reason", reason))
			rc.swap(nil)

			next, err := rc.connect(ctx, 0)
			if err != nil {
				return
			}
			if !rc.swap(next) {
				return
			}
			conn = next
			log.Info("Reconnected to RabbitMQ")
		}
	}
}

// swap replaces the live connection; it refuses once Close has been called
func (rc *RabbitConnection) swap(conn amqpConnection) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		if conn != nil {
			_ = conn.Close()
		}
		return false
	}
	rc.conn = conn
	return true
}

// withChannel opens a channel for the duration of fn and always closes it
func (rc *RabbitConnection) withChannel(fn func(ch amqpChannel) error) error {
	rc.mu.RLock()
	conn := rc.conn
	rc.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return fn(ch)
}

// Close stops the supervisor and closes the connection
func (rc *RabbitConnection) Close() error {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()
		return nil
	}
	rc.closed = true
	conn := rc.conn
	rc.conn = nil
	rc.mu.Unlock()

	rc.cancel()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	<-rc.done
	return err
}

func declareExchange(ch amqpChannel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
}

// RabbitPublisher publishes persistent JSON messages to a topic exchange
type RabbitPublisher struct {
	conn     *RabbitConnection
	exchange string
}

// NewRabbitPublisher creates a publisher bound to exchange
func NewRabbitPublisher(conn *RabbitConnection, exchange string) *RabbitPublisher {
	return &RabbitPublisher{conn: conn, exchange: exchange}
}

// Publish marshals payload and sends it with routingKey
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	return p.conn.withChannel(func(ch amqpChannel) error {
		if err := declareExchange(ch, p.exchange); err != nil {
			return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
		}
		return ch.PublishWithContext(
			ctx,
			p.exchange, // exchange
			routingKey, // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    uuid.NewString(),
				Timestamp:    time.Now().UTC(),
				Body:         body,
			},
		)
	})
}

// Close closes the underlying connection
func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

// RabbitConsumer consumes a durable queue bound to one routing key.
// Every delivery is acknowledged after the handler returns, including on
// handler failure: failed messages are logged and dropped.
type RabbitConsumer struct {
	conn       *RabbitConnection
	exchange   string
	queue      string
	routingKey string
	prefetch   int
}

// NewRabbitConsumer creates a consumer for queue bound to routingKey on exchange
func NewRabbitConsumer(conn *RabbitConnection, exchange, queue, routingKey string) *RabbitConsumer {
	return &RabbitConsumer{
		conn:       conn,
		exchange:   exchange,
		queue:      queue,
		routingKey: routingKey,
		prefetch:   10,
	}
}

// Consume blocks until ctx is done, re-opening the channel after failures
func (c *RabbitConsumer) Consume(ctx context.Context, handler Handler) error {
	log := logger.GetLogger().With(zap.String("queue", c.queue), zap.String("routing_key", c.routingKey))
	log.Info("RabbitMQ consumer started")

	for attempt := 0; ; attempt++ {
		err := c.conn.withChannel(func(ch amqpChannel) error {
			return c.consumeChannel(ctx, ch, handler)
		})
		if ctx.Err() != nil {
			log.Info("RabbitMQ consumer stopped")
			return nil
		}
		log.Warn("RabbitMQ consumer interrupted", zap.Int("attempt", attempt+1), zap.Error(err))
		if err := sleep(ctx, c.conn.policy.Next(attempt)); err != nil {
			return nil
		}
	}
}

func (c *RabbitConsumer) consumeChannel(ctx context.Context, ch amqpChannel, handler Handler) error {
	if err := declareExchange(ch, c.exchange); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, c.routingKey, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.dispatch(ctx, d, handler)
		}
	}
}

func (c *RabbitConsumer) dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	log := logger.GetLogger().With(zap.String("message_id", d.MessageId), zap.String("routing_key", d.RoutingKey))

	handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	err := handler(handlerCtx, Message{ID: d.MessageId, RoutingKey: d.RoutingKey, Body: d.Body})
	cancel()
	if err != nil {
		log.Error("Message handler failed, dropping message", zap.Error(err))
	}

	if err := d.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
	}
}

// Close closes the underlying connection
func (c *RabbitConsumer) Close() error {
	return c.conn.Close()
}
