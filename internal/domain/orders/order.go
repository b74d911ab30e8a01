package orders

import (
	"fmt"
	"time"

	"orderflow/internal/apperr"
)

// OrderItem represents a single item in an order.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     Money // per-unit in cents
}

// Order represents a customer's order. The order service owns this record
// exclusively; the processor only ever sees its event snapshot.
type Order struct {
	ID           string // uuid, generated at creation
	CustomerID   string
	Items        []OrderItem
	TotalAmount  Money // computed once at creation, never recomputed
	Status       OrderStatus
	ErrorMessage *string // set iff Status == failed
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SumItems computes the total from a set of items.
func SumItems(items []OrderItem) Money {
	var sum Money
	for _, it := range items {
		sum += Money(it.Quantity) * it.Price
	}
	return sum
}

// SetTotalAmount computes the order total from its items.
func (order *Order) SetTotalAmount() {
	order.TotalAmount = SumItems(order.Items)
}

// ValidateItems checks the structural rules shared by order creation and
// event-side validation: items non-empty, quantity > 0, price >= 0.
func ValidateItems(items []OrderItem) error {
	if len(items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	for i, it := range items {
		if it.ProductID == "" {
			return apperr.Validation(fmt.Sprintf("item %d: product_id is required", i+1))
		}
		if it.Quantity <= 0 {
			return apperr.Validation(fmt.Sprintf("invalid quantity for product %s", it.ProductID))
		}
		if it.Price < 0 {
			return apperr.Validation(fmt.Sprintf("invalid price for product %s", it.ProductID))
		}
	}
	return nil
}
