package common

import (
	"encoding/json"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/shopspring/decimal"
)

// Amount is a money value in a request or response. It decodes from a JSON
// string or number and encodes as a string with two fractional digits.
type Amount decimal.Decimal

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount(d)
}

// Decimal returns the underlying value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.Decimal(a)
}

// String renders the amount with two fractional digits.
func (a Amount) String() string {
	return ledger.FormatAmount(a.Decimal())
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler. Values with more than two
// fractional digits or beyond ledger.MaxAmount are rejected.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ledger.ErrInvalidAmount
	}
	if !ledger.WithinBounds(d) || !d.Equal(d.Truncate(ledger.Scale)) {
		return ledger.ErrInvalidAmount
	}
	*a = Amount(d)
	return nil
}
