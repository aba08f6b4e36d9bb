package dto

import (
	"time"

	"github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseCreate is written in the same transaction as its debit entry.
type PurchaseCreate struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountID     uuid.UUID
	EntryID       string
	Items         []purchase.Item
	PaymentMethod string
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
}

// PurchaseRead is a stored purchase.
type PurchaseRead struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountID     uuid.UUID
	EntryID       string
	Items         []purchase.Item
	PaymentMethod string
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
}
