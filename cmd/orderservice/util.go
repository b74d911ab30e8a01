package orderservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"orderflow/internal/apperr"
	"orderflow/internal/ports"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// resultHandler decodes order.processed deliveries and maps service outcomes
// to ack decisions: unknown orders are acknowledged and dropped, malformed
// payloads and unrecoverable faults dead-letter, and an interrupted delivery
// is requeued for the next attempt.
func resultHandler(log zerolog.Logger, svc ports.OrderService) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) rabbitmq.Decision {
		event, err := contracts.DecodeOrderProcessed(body)
		if err != nil {
			log.Error().Err(err).Msg("failed to decode order.processed event")
			return rabbitmq.RejectNoRequeue
		}

		err = svc.HandleOrderProcessed(ctx, event)
		switch {
		case err == nil:
			return rabbitmq.Ack
		case errors.Is(err, apperr.ErrNotFound):
			// no retry can resolve an unknown order; drop the event
			return rabbitmq.Ack
		case apperr.IsUnrecoverable(err):
			log.Error().Err(err).Str("order_id", event.OrderID).Msg("reconciliation failed; dead-lettering")
			return rabbitmq.RejectNoRequeue
		default:
			log.Warn().Err(err).Str("order_id", event.OrderID).Msg("reconciliation interrupted; requeueing")
			return rabbitmq.RejectRequeue
		}
	}
}
