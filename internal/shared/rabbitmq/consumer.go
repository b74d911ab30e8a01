package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Decision is the handler's verdict on a single delivery.
type Decision int

const (
	// Ack acknowledges the message; it is done.
	Ack Decision = iota
	// RejectNoRequeue rejects the message so the broker routes it to the
	// dead-letter exchange. Used for infrastructure faults and malformed
	// payloads; there is no in-line retry in this design.
	RejectNoRequeue
	// RejectRequeue puts the message back on the queue. Consumers must stay
	// idempotent precisely because this and broker-side redelivery exist.
	RejectRequeue
)

// Handler processes one delivery body and returns the ack decision.
// Registered once per queue at startup; no hidden control flow.
type Handler func(ctx context.Context, body []byte) Decision

// Consume runs a blocking consume loop on the given queue, delivering
// messages one at a time (bounded by prefetch) to handler. Channel loss
// triggers resubscription with capped exponential backoff. Returns when ctx
// is cancelled.
func (client *Client) Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler Handler) error {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		ch, err := client.NewConsumerChannel(prefetch)
		if err != nil {
			client.logger.Error().Err(err).Str("queue", queue).Msg("failed to open consumer channel")
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		deliveries, err := ch.Consume(
			queue,
			consumerTag,
			false, // manual ack
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			_ = ch.Close()
			client.logger.Error().Err(err).Str("queue", queue).Msg("failed to start consuming")
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		client.logger.Info().Str("queue", queue).Str("consumer_tag", consumerTag).Msg("consumer started")
		backoff = time.Second

		if !client.readLoop(ctx, ch, consumerTag, deliveries, handler) {
			return nil
		}

		// channel closed server-side; resubscribe
		if !sleepCtx(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

// readLoop drains deliveries until ctx cancellation (returns false) or
// channel loss (returns true, caller resubscribes).
func (client *Client) readLoop(ctx context.Context, ch *amqp.Channel, consumerTag string, deliveries <-chan amqp.Delivery, handler Handler) bool {
	for {
		select {
		case <-ctx.Done():
			// stop consuming and let the broker requeue any in-flight
			_ = ch.Cancel(consumerTag, false)
			_ = ch.Close()
			return false
		case d, ok := <-deliveries:
			if !ok {
				_ = ch.Close()
				return true
			}
			client.settle(d, handler(ctx, d.Body))
		}
	}
}

// settle applies the handler's decision to the delivery.
func (client *Client) settle(d amqp.Delivery, decision Decision) {
	var err error
	switch decision {
	case Ack:
		err = d.Ack(false)
	case RejectRequeue:
		err = d.Nack(false, true)
	case RejectNoRequeue:
		err = d.Nack(false, false)
	default:
		err = fmt.Errorf("unknown decision %d", decision)
	}
	if err != nil {
		client.logger.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("failed to settle delivery")
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d >= 30*time.Second {
		return 30 * time.Second
	}
	return d * 2
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
