package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRead is a read-optimized view of an account.
type AccountRead struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   decimal.Decimal
	IsAdmin   bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountCreate is a DTO for creating a new account. Accounts always start
// with a zero balance and version zero.
type AccountCreate struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	IsAdmin bool
}

// BalanceChange is the state produced by a successful ApplyDelta.
type BalanceChange struct {
	Balance decimal.Decimal
	Version int64
}

// AccountOwner pairs an account with its owner's email for admin listings.
type AccountOwner struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
	Username  string
	Email     string
	Balance   decimal.Decimal
	IsAdmin   bool
}
