package admin

import (
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/google/uuid"
)

// AdjustInput is the body of POST /admin/adjustments. Target is an account
// id or the owner's email.
type AdjustInput struct {
	Target string        `json:"target" validate:"required,max=254"`
	Delta  common.Amount `json:"delta" swaggertype:"string" example:"10.00"`
	Reason string        `json:"reason" validate:"omitempty,oneof=admin_adjustment top_up"`
}

// AccountRow is one line of the admin account listing.
type AccountRow struct {
	AccountID uuid.UUID     `json:"accountId"`
	UserID    uuid.UUID     `json:"userId"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Balance   common.Amount `json:"balance" swaggertype:"string"`
	IsAdmin   bool          `json:"isAdmin"`
}

// AdjustResponse reports the recorded entry.
type AdjustResponse struct {
	EntryID    string        `json:"entryId"`
	AccountID  uuid.UUID     `json:"accountId"`
	NewBalance common.Amount `json:"newBalance" swaggertype:"string"`
}

// ReconcileResponse reports whether an account's ledger is consistent.
type ReconcileResponse struct {
	AccountID   uuid.UUID     `json:"accountId"`
	Balance     common.Amount `json:"balance" swaggertype:"string"`
	Sum         common.Amount `json:"sum" swaggertype:"string"`
	LastBalance common.Amount `json:"lastBalance" swaggertype:"string"`
	Entries     int64         `json:"entries"`
	Version     int64         `json:"version"`
	Consistent  bool          `json:"consistent"`
}
