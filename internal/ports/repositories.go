package ports

import (
	"context"
	"time"

	"orderflow/internal/domain/orders"
	"orderflow/internal/domain/processing"
)

// UnitOfWork wraps a function in a DB transaction. A row is durably visible
// before any event derived from it is published.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository owns the order ledger (order service only).
type OrderRepository interface {
	Create(ctx context.Context, o *orders.Order) error
	GetByID(ctx context.Context, orderID string) (*orders.Order, error)
	// ApplyResultCAS applies the terminal transition pending -> next only when
	// the row is still pending; applied=false means the order was already
	// terminal (duplicate delivery).
	ApplyResultCAS(ctx context.Context, orderID string, next orders.OrderStatus, errorMessage *string) (applied bool, err error)
}

// ProcessingRepository owns the processing ledger (processor only). Insert
// returns apperr.ErrDuplicate when the unique order_id constraint fires.
type ProcessingRepository interface {
	Insert(ctx context.Context, rec *processing.Record) error
	GetByOrderID(ctx context.Context, orderID string) (*processing.Record, error)
	SetProcessing(ctx context.Context, orderID string) error
	// FinishCAS records the terminal outcome unless the record is already
	// terminal; applied=false means a concurrent attempt won.
	FinishCAS(ctx context.Context, orderID string, status processing.Status, errorMessage *string, processedAt time.Time) (applied bool, err error)
}

// Publisher sends a message to the given exchange and routing key with
// persistent delivery mode. It does not retry internally.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
