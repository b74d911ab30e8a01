package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderCreated(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"order_id": "2f59f35c-6f7a-47f1-9f0a-0d2d9f2d8f11",
		"customer_id": "c1",
		"items": [{"product_id": "p1", "quantity": 2, "price": 10.5}],
		"total_amount": 21.0,
		"created_at": "2025-06-01T12:00:00Z"
	}`)

	event, err := DecodeOrderCreated(body)
	require.NoError(t, err)
	assert.Equal(t, "2f59f35c-6f7a-47f1-9f0a-0d2d9f2d8f11", event.OrderID)
	assert.Equal(t, "c1", event.CustomerID)
	require.Len(t, event.Items, 1)
	assert.Equal(t, 10.5, event.Items[0].Price)
	assert.Equal(t, 21.0, event.TotalAmount)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), event.CreatedAt)
}

func TestDecodeOrderCreated_Malformed(t *testing.T) {
	t.Parallel()

	_, err := DecodeOrderCreated([]byte(`{not json`))
	require.Error(t, err)

	_, err = DecodeOrderCreated([]byte(`{"customer_id": "c1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing order_id")
}

func TestDecodeOrderProcessed(t *testing.T) {
	t.Parallel()

	msg := "boom"
	body, err := EncodeOrderProcessed(OrderProcessedEvent{
		OrderID:      "o1",
		Status:       "failed",
		ErrorMessage: &msg,
	})
	require.NoError(t, err)

	event, err := DecodeOrderProcessed(body)
	require.NoError(t, err)
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "failed", event.Status)
	require.NotNil(t, event.ErrorMessage)
	assert.Equal(t, "boom", *event.ErrorMessage)
}

func TestDecodeOrderProcessed_NullErrorMessage(t *testing.T) {
	t.Parallel()

	// error_message is part of the wire contract even when null
	event, err := DecodeOrderProcessed([]byte(`{"order_id": "o1", "status": "completed", "error_message": null}`))
	require.NoError(t, err)
	assert.Nil(t, event.ErrorMessage)
}

func TestDecodeOrderProcessed_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeOrderProcessed([]byte(`{"status": "completed"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing order_id")

	_, err = DecodeOrderProcessed([]byte(`{"order_id": "o1", "status": "pending"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status must be terminal")
}
