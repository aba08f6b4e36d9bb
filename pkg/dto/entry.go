package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryCreate carries a new immutable ledger entry.
type EntryCreate struct {
	ID             string
	AccountID      uuid.UUID
	Sequence       int64
	Delta          decimal.Decimal
	BalanceAfter   decimal.Decimal
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// EntryRead is a stored ledger entry.
type EntryRead struct {
	ID             string
	AccountID      uuid.UUID
	Sequence       int64
	Delta          decimal.Decimal
	BalanceAfter   decimal.Decimal
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// EntryTotals aggregates an account's entries for reconciliation.
type EntryTotals struct {
	Count        int64
	Sum          decimal.Decimal
	LastSequence int64
	LastBalance  decimal.Decimal
}
