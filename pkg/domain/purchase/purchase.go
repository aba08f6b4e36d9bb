// Package purchase models a storefront checkout paid from the user's balance.
package purchase

import (
	"errors"
	"strings"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyCart is returned when a checkout carries no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidItem is returned for an item with a non-positive quantity,
	// a negative price or a missing product id.
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrTotalMismatch is returned when the declared total differs from the
	// sum of the line totals.
	ErrTotalMismatch = errors.New("total does not match cart items")
)

// PaymentMethodBalance is the only supported way to pay.
const PaymentMethodBalance = "balance"

// Item is one cart line.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal is quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the line totals.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ValidateCart checks every item and that total equals the computed sum.
func ValidateCart(items []Item, total decimal.Decimal) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return ErrInvalidItem
		}
		if !it.UnitPrice.Equal(it.UnitPrice.Truncate(ledger.Scale)) {
			return ErrInvalidItem
		}
		if !ledger.WithinBounds(it.LineTotal()) {
			return ErrInvalidItem
		}
	}
	if !total.IsPositive() || !ledger.WithinBounds(total) {
		return ledger.ErrInvalidAmount
	}
	if !Total(items).Equal(total) {
		return ErrTotalMismatch
	}
	return nil
}
