package grpcapi

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmitRequest struct {
	AccountID      string          `json:"accountId"`
	Delta          decimal.Decimal `json:"delta"`
	Reason         string          `json:"reason"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

type SubmitResponse struct {
	EntryID    string          `json:"entryId"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Replayed   bool            `json:"replayed"`
}

type GetBalanceRequest struct {
	AccountID string `json:"accountId"`
}

type GetBalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type ListEntriesRequest struct {
	AccountID string `json:"accountId"`
	Cursor    string `json:"cursor,omitempty"`
	Limit     int32  `json:"limit,omitempty"`
}

type Entry struct {
	EntryID      string          `json:"entryId"`
	AccountID    string          `json:"accountId"`
	Sequence     int64           `json:"sequence"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type ListEntriesResponse struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"nextCursor,omitempty"`
}
