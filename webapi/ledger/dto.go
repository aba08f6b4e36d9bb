package ledger

import (
	"time"

	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/google/uuid"
)

// AdjustmentRequest is the body of POST /balance-adjustments.
type AdjustmentRequest struct {
	AccountID      string        `json:"accountId" validate:"required,uuid"`
	Delta          common.Amount `json:"delta" swaggertype:"string" example:"-30.00"`
	Reason         string        `json:"reason" validate:"required,oneof=top_up purchase admin_adjustment"`
	IdempotencyKey string        `json:"idempotencyKey" validate:"required,max=128"`
}

// AdjustmentResponse is returned for accepted and replayed adjustments.
type AdjustmentResponse struct {
	EntryID    string        `json:"entryId"`
	NewBalance common.Amount `json:"newBalance" swaggertype:"string" example:"20.00"`
}

// BalanceResponse is the body of GET /balance/{accountId}.
type BalanceResponse struct {
	Balance common.Amount `json:"balance" swaggertype:"string" example:"20.00"`
}

// EntryResponse is one ledger entry.
type EntryResponse struct {
	EntryID      string        `json:"entryId"`
	AccountID    uuid.UUID     `json:"accountId"`
	Sequence     int64         `json:"sequence"`
	Delta        common.Amount `json:"delta" swaggertype:"string"`
	BalanceAfter common.Amount `json:"balanceAfter" swaggertype:"string"`
	Reason       string        `json:"reason"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// EntryPageResponse is the body of GET /ledger/{accountId}.
type EntryPageResponse struct {
	Entries    []EntryResponse `json:"entries"`
	NextCursor string          `json:"nextCursor"`
}

// AccountResponse describes the caller's account.
type AccountResponse struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"userId"`
	Balance   common.Amount `json:"balance" swaggertype:"string"`
	IsAdmin   bool          `json:"isAdmin"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// TopUpRequest is the body of POST /account/top-up.
type TopUpRequest struct {
	Amount common.Amount `json:"amount" swaggertype:"string" example:"50.00"`
}

func toEntryResponse(e *dto.EntryRead) EntryResponse {
	return EntryResponse{
		EntryID:      e.ID,
		AccountID:    e.AccountID,
		Sequence:     e.Sequence,
		Delta:        common.NewAmount(e.Delta),
		BalanceAfter: common.NewAmount(e.BalanceAfter),
		Reason:       e.Reason,
		CreatedAt:    e.CreatedAt,
	}
}

func toAccountResponse(a *dto.AccountRead) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Balance:   common.NewAmount(a.Balance),
		IsAdmin:   a.IsAdmin,
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
