// Package ledger holds the balance ledger vocabulary: reasons, amounts and
// the validation rules every balance mutation must satisfy.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount.
const Scale int32 = 2

// MaxAmount is the largest magnitude a NUMERIC(20,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999999999.99")

// WithinBounds reports whether |d| does not exceed MaxAmount.
func WithinBounds(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// MaxIdempotencyKeyLength bounds the caller supplied idempotency key.
const MaxIdempotencyKeyLength = 128

// Reason tags why a balance changed.
type Reason string

const (
	ReasonTopUp           Reason = "top_up"
	ReasonPurchase        Reason = "purchase"
	ReasonAdminAdjustment Reason = "admin_adjustment"
)

// Valid reports whether r is a known reason tag.
func (r Reason) Valid() bool {
	switch r {
	case ReasonTopUp, ReasonPurchase, ReasonAdminAdjustment:
		return true
	}
	return false
}

func (r Reason) String() string {
	return string(r)
}

// ParseReason converts a tag to a Reason.
func ParseReason(s string) (Reason, error) {
	r := Reason(strings.TrimSpace(s))
	if !r.Valid() {
		return "", ErrInvalidReason
	}
	return r, nil
}

// ValidateDelta checks that delta is non-zero, within MaxAmount and
// representable with Scale fractional digits.
func ValidateDelta(delta decimal.Decimal) error {
	if delta.IsZero() || !WithinBounds(delta) {
		return ErrInvalidAmount
	}
	if !delta.Equal(delta.Truncate(Scale)) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateIdempotencyKey checks the key length bounds.
func ValidateIdempotencyKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrIdempotencyKeyRequired
	}
	if len(key) > MaxIdempotencyKeyLength {
		return ErrIdempotencyKeyTooLong
	}
	return nil
}

// ParseAmount parses a decimal string and rejects values with more than
// Scale fractional digits or beyond MaxAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !WithinBounds(d) || !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly Scale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
