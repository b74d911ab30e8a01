package ports

import (
	"context"

	"orderflow/internal/domain/orders"
	"orderflow/internal/shared/contracts"
)

// OrderService drives the order lifecycle: create → publish-on-commit,
// lookup, and status reconciliation from result events.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	HandleOrderProcessed(ctx context.Context, event contracts.OrderProcessedEvent) error
}

type CreateOrderCommand struct {
	CustomerID string
	Items      []ItemInput
}

type ItemInput struct {
	ProductID string
	Quantity  int
	Price     orders.Money
}

// ProcessorService is the idempotent entry point invoked once per delivered
// creation event (possibly more than once under redelivery).
type ProcessorService interface {
	HandleOrderCreated(ctx context.Context, event contracts.OrderCreatedEvent) error
}
