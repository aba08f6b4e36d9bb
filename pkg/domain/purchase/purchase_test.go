package purchase

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(id string, qty int, price string) Item {
	return Item{ProductID: id, Name: id, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestTotal(t *testing.T) {
	items := []Item{item("p1", 2, "10.50"), item("p2", 1, "9.00")}
	assert.Equal(t, "30.00", Total(items).StringFixed(2))
}

func TestValidateCart(t *testing.T) {
	valid := []Item{item("p1", 2, "10.50"), item("p2", 1, "9.00")}

	tests := []struct {
		name  string
		items []Item
		total string
		err   error
	}{
		{"valid", valid, "30.00", nil},
		{"empty", nil, "1", ErrEmptyCart},
		{"zero quantity", []Item{item("p1", 0, "1")}, "1", ErrInvalidItem},
		{"negative price", []Item{item("p1", 1, "-1")}, "1", ErrInvalidItem},
		{"missing product", []Item{item("", 1, "1")}, "1", ErrInvalidItem},
		{"sub-cent price", []Item{item("p1", 1, "1.001")}, "1.001", ErrInvalidItem},
		{"mismatch", valid, "29.99", ErrTotalMismatch},
		{"free cart", []Item{item("p1", 1, "0")}, "0", ledger.ErrInvalidAmount},
		{"line total overflow", []Item{item("p1", 2, "999999999999999999.99")}, "1999999999999999999.98", ErrInvalidItem},
		{"cart total overflow", []Item{item("p1", 1, "999999999999999999.99"), item("p2", 1, "0.01")}, "1000000000000000000.00", ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCart(tt.items, decimal.RequireFromString(tt.total))
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
