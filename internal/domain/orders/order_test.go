package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/apperr"
)

func TestSetTotalAmount(t *testing.T) {
	t.Parallel()

	order := Order{
		Items: []OrderItem{
			{ProductID: "p1", Quantity: 2, Price: MoneyFromDollars(10.50)},
			{ProductID: "p2", Quantity: 1, Price: MoneyFromDollars(25.00)},
		},
	}
	order.SetTotalAmount()

	assert.Equal(t, Money(4600), order.TotalAmount)
	assert.Equal(t, 46.00, order.TotalAmount.Dollars())
}

func TestSetTotalAmount_ZeroPriceItems(t *testing.T) {
	t.Parallel()

	order := Order{
		Items: []OrderItem{
			{ProductID: "freebie", Quantity: 3, Price: 0},
		},
	}
	order.SetTotalAmount()

	assert.Equal(t, Money(0), order.TotalAmount)
}

func TestValidateItems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		items   []OrderItem
		wantErr string
	}{
		{
			name:    "empty items",
			items:   nil,
			wantErr: "at least one item",
		},
		{
			name:    "zero quantity",
			items:   []OrderItem{{ProductID: "p1", Quantity: 0, Price: 100}},
			wantErr: "invalid quantity for product p1",
		},
		{
			name:    "negative price",
			items:   []OrderItem{{ProductID: "p1", Quantity: 1, Price: -1}},
			wantErr: "invalid price for product p1",
		},
		{
			name:    "missing product id",
			items:   []OrderItem{{Quantity: 1, Price: 100}},
			wantErr: "product_id is required",
		},
		{
			name:  "zero price is allowed",
			items: []OrderItem{{ProductID: "p1", Quantity: 1, Price: 0}},
		},
		{
			name: "valid items",
			items: []OrderItem{
				{ProductID: "p1", Quantity: 2, Price: 1050},
				{ProductID: "p2", Quantity: 1, Price: 2500},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateItems(tt.items)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, CanTransition(StatusPending, StatusCompleted))
	assert.True(t, CanTransition(StatusPending, StatusFailed))

	// terminal states permit no further transition
	for _, from := range []OrderStatus{StatusCompleted, StatusFailed} {
		for _, to := range []OrderStatus{StatusPending, StatusCompleted, StatusFailed} {
			assert.False(t, CanTransition(from, to), "from %s to %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestMoneyFromDollars_Rounding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Money(1050), MoneyFromDollars(10.50))
	assert.Equal(t, Money(1), MoneyFromDollars(0.005))
	assert.Equal(t, Money(2999), MoneyFromDollars(29.99))
}
