package orderservice

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
	"orderflow/internal/ports"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// stubOrderService returns a fixed error from HandleOrderProcessed.
type stubOrderService struct {
	err error
}

func (s stubOrderService) CreateOrder(context.Context, ports.CreateOrderCommand) (*orders.Order, error) {
	return nil, errors.New("not used")
}

func (s stubOrderService) GetOrder(context.Context, string) (*orders.Order, error) {
	return nil, errors.New("not used")
}

func (s stubOrderService) HandleOrderProcessed(context.Context, contracts.OrderProcessedEvent) error {
	return s.err
}

func processedBody(t *testing.T) []byte {
	t.Helper()
	body, err := contracts.EncodeOrderProcessed(contracts.OrderProcessedEvent{
		OrderID: "2f59f35c-6f7a-47f1-9f0a-0d2d9f2d8f11",
		Status:  "completed",
	})
	require.NoError(t, err)
	return body
}

func TestResultHandler_Decisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want rabbitmq.Decision
	}{
		{"success acks", nil, rabbitmq.Ack},
		{"unknown order is dropped", apperr.ErrNotFound, rabbitmq.Ack},
		{"unrecoverable fault dead-letters", apperr.Unrecoverable(errors.New("connection reset")), rabbitmq.RejectNoRequeue},
		{"interrupted delivery is requeued", context.Canceled, rabbitmq.RejectRequeue},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := resultHandler(zerolog.Nop(), stubOrderService{err: tt.err})
			assert.Equal(t, tt.want, handler(context.Background(), processedBody(t)))
		})
	}
}

// A malformed payload never reaches the service and never loops back onto the
// primary queue.
func TestResultHandler_MalformedPayloadDeadLetters(t *testing.T) {
	t.Parallel()

	handler := resultHandler(zerolog.Nop(), stubOrderService{err: errors.New("must not be called")})
	assert.Equal(t, rabbitmq.RejectNoRequeue, handler(context.Background(), []byte(`{not json`)))
	assert.Equal(t, rabbitmq.RejectNoRequeue, handler(context.Background(), []byte(`{"order_id":"o1","status":"pending"}`)))
}
