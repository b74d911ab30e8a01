package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
	"orderflow/internal/ports"
)

// OrdersRepo implements persistence for orders using pgx and SQL.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// itemRow is the jsonb representation of one order item.
type itemRow struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

func itemsToJSON(items []orders.OrderItem) ([]byte, error) {
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.Dollars(),
		}
	}
	return json.Marshal(rows)
}

func itemsFromJSON(b []byte) ([]orders.OrderItem, error) {
	var rows []itemRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	items := make([]orders.OrderItem, len(rows))
	for i, r := range rows {
		items[i] = orders.OrderItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			Price:     orders.MoneyFromDollars(r.Price),
		}
	}
	return items, nil
}

// Create inserts the order row with status 'pending'.
// note: total_amount is NUMERIC(10,2) in DB; we send integer cents and divide by 100 in SQL.
func (r *OrdersRepo) Create(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	itemsJSON, err := itemsToJSON(order.Items)
	if err != nil {
		return err
	}

	var status string
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, items, total_amount, status)
		VALUES ($1, $2, $3, $4::numeric/100, 'pending')
		RETURNING created_at, updated_at, status`,
		order.ID,
		order.CustomerID,
		itemsJSON,
		int64(order.TotalAmount),
	).Scan(&order.CreatedAt, &order.UpdatedAt, &status)
	if err != nil {
		return err
	}
	order.Status = orders.OrderStatus(status)
	return nil
}

// GetByID retrieves an order by id, including its items.
func (r *OrdersRepo) GetByID(ctx context.Context, orderID string) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		order     orders.Order
		itemsJSON []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT id, customer_id, items, (total_amount*100)::bigint, status, error_message, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID, &order.CustomerID, &itemsJSON, &order.TotalAmount,
		&order.Status, &order.ErrorMessage, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Items, err = itemsFromJSON(itemsJSON)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ApplyResultCAS applies the terminal transition using a compare-and-swap
// approach: only a row still 'pending' is updated.
func (r *OrdersRepo) ApplyResultCAS(ctx context.Context, orderID string, next orders.OrderStatus, errorMessage *string) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	var updated bool
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, error_message = $2, updated_at = now()
		WHERE id = $3 AND status = 'pending'
		RETURNING true
	`, next, errorMessage, orderID).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return updated, nil
}
