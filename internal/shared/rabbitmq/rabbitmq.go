package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	amqp "github.com/rabbitmq/amqp091-go"

	"orderflow/internal/shared/contracts"
)

// Exchange and queue topology for the order choreography. One domain exchange
// carries both event types; every consumer queue dead-letters to the DLX with
// its own routing key so a poisoned message never blocks the primary queue.
const (
	ExchangeOrders = "orders"
	ExchangeDLX    = "orders.dlx"

	QueueOrderCreated    = "processor-service.order.created"
	QueueOrderCreatedDLQ = "processor-service.order.created.failed"
	KeyOrderCreatedDLQ   = "order.created.failed"

	QueueOrderProcessed    = "order-service.order.processed"
	QueueOrderProcessedDLQ = "order-service.order.processed.failed"
	KeyOrderProcessedDLQ   = "order.processed.failed"
)

// Client is a resilient RabbitMQ connector with auto-reconnect and topology setup.
type Client struct {
	url    string
	logger zerolog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// Connect establishes the connection, declares the topology, and starts a
// background watcher that reconnects on failures. The returned Client is a
// scoped resource: acquired at startup, injected, released with Close.
func Connect(ctx context.Context, url string, log zerolog.Logger) (*Client, error) {
	client := &Client{
		url:       url,
		logger:    log,
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	// initial connect (single attempt; further retries happen in the watcher)
	if err := client.connectOnce(); err != nil {
		return nil, err
	}

	go client.watch()

	return client, nil
}

// NewConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) NewConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, err
		}
	}

	return ch, nil
}

// Publish sends a JSON message with persistent delivery mode. It is called
// only after the caller's local transaction has committed, and never retries.
func (client *Client) Publish(exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(ctx,
		exchange, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
}

// Ping checks connectivity by dialing TCP to the RabbitMQ host.
func (client *Client) Ping(timeout time.Duration) error {
	client.mu.RLock()
	conn := client.conn
	url := client.url
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: no connection")
	}

	u, err := amqp.ParseURI(url)
	if err != nil {
		return fmt.Errorf("rabbitmq: bad url: %w", err)
	}
	addr := net.JoinHostPort(u.Host, fmt.Sprintf("%d", u.Port))

	d := net.Dialer{Timeout: timeout}
	c, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}

	_ = c.Close()
	return nil
}

// Close gracefully stops the watcher and closes AMQP resources.
func (client *Client) Close() {
	select {
	case <-client.closed:
		// already closed
	default:
		close(client.closed)
	}

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()
}

// --- internals ---

// connectOnce tries to connect and set up topology once.
func (client *Client) connectOnce() error {
	start := time.Now().UTC()

	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	// declare/ensure topology idempotently
	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	client.mu.Lock()
	client.conn = conn
	if client.pubChan != nil {
		_ = client.pubChan.Close()
	}
	client.pubChan = ch
	client.mu.Unlock()

	// watch for connection/channel closures and trigger reconnect
	go func() {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-client.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		select {
		case client.reconnect <- struct{}{}:
		default:
			// already enqueued; no-op
		}
	}()

	client.logger.Info().
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Str("exchange", ExchangeOrders).
		Str("dlx", ExchangeDLX).
		Msg("connected to RabbitMQ")

	return nil
}

// watch runs in background and attempts reconnects with exponential backoff.
func (client *Client) watch() {
	backoff := time.Second
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			// attempt reconnect until success or Close()
			for {
				select {
				case <-client.closed:
					return
				default:
				}

				err := client.connectOnce()
				if err == nil {
					backoff = time.Second
					client.logger.Info().Msg("reconnected to RabbitMQ and re-ensured topology")
					break
				}

				client.logger.Error().Err(err).Msg("RabbitMQ reconnect failed")

				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}

// declareTopology declares exchanges, queues, and bindings.
func declareTopology(ch *amqp.Channel) error {
	// exchanges
	if err := ch.ExchangeDeclare(ExchangeOrders, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeDLX, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	// processor side: order.created queue + its DLQ
	if err := declareConsumerQueue(ch,
		QueueOrderCreated, contracts.EventOrderCreated,
		QueueOrderCreatedDLQ, KeyOrderCreatedDLQ,
	); err != nil {
		return err
	}

	// order side: order.processed queue + its DLQ
	return declareConsumerQueue(ch,
		QueueOrderProcessed, contracts.EventOrderProcessed,
		QueueOrderProcessedDLQ, KeyOrderProcessedDLQ,
	)
}

// declareConsumerQueue declares one durable consumer queue bound to the orders
// exchange, dead-lettering to the DLX, plus the matching dead-letter queue.
func declareConsumerQueue(ch *amqp.Channel, queue, bindKey, dlq, dlqKey string) error {
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlq, dlqKey, ExchangeDLX, false, nil); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": dlqKey,
	})
	if err != nil {
		return err
	}
	return ch.QueueBind(queue, bindKey, ExchangeOrders, false, nil)
}
