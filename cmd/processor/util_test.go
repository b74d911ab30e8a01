package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/apperr"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// stubProcessorService returns a fixed error from HandleOrderCreated.
type stubProcessorService struct {
	err error
}

func (s stubProcessorService) HandleOrderCreated(context.Context, contracts.OrderCreatedEvent) error {
	return s.err
}

func createdBody(t *testing.T) []byte {
	t.Helper()
	body, err := contracts.EncodeOrderCreated(contracts.OrderCreatedEvent{
		OrderID:    "2f59f35c-6f7a-47f1-9f0a-0d2d9f2d8f11",
		CustomerID: "c1",
		Items: []contracts.EventItem{
			{ProductID: "p1", Quantity: 1, Price: 9.99},
		},
		TotalAmount: 9.99,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func TestCreatedHandler_Decisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want rabbitmq.Decision
	}{
		{"success acks", nil, rabbitmq.Ack},
		{"unrecoverable fault dead-letters", apperr.Unrecoverable(errors.New("connection reset")), rabbitmq.RejectNoRequeue},
		{"interrupted delivery is requeued", context.Canceled, rabbitmq.RejectRequeue},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := createdHandler(zerolog.Nop(), stubProcessorService{err: tt.err})
			assert.Equal(t, tt.want, handler(context.Background(), createdBody(t)))
		})
	}
}

// A malformed payload never reaches the service and never loops back onto the
// primary queue.
func TestCreatedHandler_MalformedPayloadDeadLetters(t *testing.T) {
	t.Parallel()

	handler := createdHandler(zerolog.Nop(), stubProcessorService{err: errors.New("must not be called")})
	assert.Equal(t, rabbitmq.RejectNoRequeue, handler(context.Background(), []byte(`{not json`)))
	assert.Equal(t, rabbitmq.RejectNoRequeue, handler(context.Background(), []byte(`{"customer_id":"c1"}`)))
}
