package processor

import (
	"context"

	"github.com/rs/zerolog"

	"orderflow/internal/apperr"
	"orderflow/internal/ports"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// createdHandler decodes order.created deliveries and maps service outcomes
// to ack decisions. Business failures are recorded outcomes, not errors, so
// only malformed payloads and unrecoverable faults dead-letter; an interrupted
// delivery is requeued for the next attempt.
func createdHandler(log zerolog.Logger, svc ports.ProcessorService) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) rabbitmq.Decision {
		event, err := contracts.DecodeOrderCreated(body)
		if err != nil {
			log.Error().Err(err).Msg("failed to decode order.created event")
			return rabbitmq.RejectNoRequeue
		}

		err = svc.HandleOrderCreated(ctx, event)
		switch {
		case err == nil:
			return rabbitmq.Ack
		case apperr.IsUnrecoverable(err):
			// the record is left in whatever state last committed (at worst
			// 'processing'), to be reconciled out-of-band from the DLQ
			log.Error().Err(err).Str("order_id", event.OrderID).Msg("processing failed; dead-lettering")
			return rabbitmq.RejectNoRequeue
		default:
			log.Warn().Err(err).Str("order_id", event.OrderID).Msg("processing interrupted; requeueing")
			return rabbitmq.RejectRequeue
		}
	}
}
