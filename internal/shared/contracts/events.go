// Package contracts defines the wire-format events exchanged on the broker.
// Field names and types are the compatibility contract between the two
// services; renaming a field here is a breaking protocol change.
package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys on the "orders" exchange.
const (
	EventOrderCreated   = "order.created"
	EventOrderProcessed = "order.processed"
)

// EventItem is the wire-format for a single item in an order event.
type EventItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // unit price in dollars
}

// OrderCreatedEvent is the immutable snapshot published to "orders" with
// routing key "order.created" after a successful DB commit.
type OrderCreatedEvent struct {
	OrderID     string      `json:"order_id"`
	CustomerID  string      `json:"customer_id"`
	Items       []EventItem `json:"items"`
	TotalAmount float64     `json:"total_amount"` // total in dollars
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderProcessedEvent is published with routing key "order.processed" once a
// processing attempt reaches a terminal outcome.
type OrderProcessedEvent struct {
	OrderID      string  `json:"order_id"`
	Status       string  `json:"status"` // "completed" | "failed"
	ErrorMessage *string `json:"error_message"`
}

// EncodeOrderCreated serializes the event for publishing.
func EncodeOrderCreated(e OrderCreatedEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", EventOrderCreated, err)
	}
	return b, nil
}

// DecodeOrderCreated deserializes a delivery body. A failure here is an
// infrastructure fault (malformed payload), not a business outcome.
func DecodeOrderCreated(body []byte) (OrderCreatedEvent, error) {
	var e OrderCreatedEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderCreatedEvent{}, fmt.Errorf("decode %s: %w", EventOrderCreated, err)
	}
	if e.OrderID == "" {
		return OrderCreatedEvent{}, fmt.Errorf("decode %s: missing order_id", EventOrderCreated)
	}
	return e, nil
}

// EncodeOrderProcessed serializes the event for publishing.
func EncodeOrderProcessed(e OrderProcessedEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", EventOrderProcessed, err)
	}
	return b, nil
}

// DecodeOrderProcessed deserializes a delivery body.
func DecodeOrderProcessed(body []byte) (OrderProcessedEvent, error) {
	var e OrderProcessedEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderProcessedEvent{}, fmt.Errorf("decode %s: %w", EventOrderProcessed, err)
	}
	if e.OrderID == "" {
		return OrderProcessedEvent{}, fmt.Errorf("decode %s: missing order_id", EventOrderProcessed)
	}
	if e.Status != "completed" && e.Status != "failed" {
		return OrderProcessedEvent{}, fmt.Errorf("decode %s: status must be terminal, got %q", EventOrderProcessed, e.Status)
	}
	return e, nil
}
