// Package events defines the notifications published after a ledger commit.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is anything that can travel on the event bus.
type Event interface {
	Type() string
}

// EventType names an event on the wire.
type EventType string

const (
	EventTypeEntryRecorded     EventType = "ledger.entry_recorded"
	EventTypePurchaseCompleted EventType = "purchase.completed"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// EntryRecorded is emitted once per newly committed ledger entry.
type EntryRecorded struct {
	EntryID      string          `json:"entryId"`
	AccountID    uuid.UUID       `json:"accountId"`
	Sequence     int64           `json:"sequence"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (EntryRecorded) Type() string { return EventTypeEntryRecorded.String() }

// PurchaseCompleted is emitted after a checkout debit commits.
type PurchaseCompleted struct {
	PurchaseID  uuid.UUID       `json:"purchaseId"`
	UserID      uuid.UUID       `json:"userId"`
	AccountID   uuid.UUID       `json:"accountId"`
	EntryID     string          `json:"entryId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (PurchaseCompleted) Type() string { return EventTypePurchaseCompleted.String() }

// EventTypes builds an empty event for a wire type so consumers can decode
// the payload into it.
var EventTypes = map[EventType]func() Event{
	EventTypeEntryRecorded:     func() Event { return &EntryRecorded{} },
	EventTypePurchaseCompleted: func() Event { return &PurchaseCompleted{} },
}
