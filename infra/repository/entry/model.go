package entry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is an append-only ledger row.
type Entry struct {
	ID             string          `gorm:"type:char(26);primaryKey"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ledger_entries_account_key;uniqueIndex:ledger_entries_account_sequence"`
	Sequence       int64           `gorm:"not null;uniqueIndex:ledger_entries_account_sequence"`
	Delta          decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Reason         string          `gorm:"size:32;not null"`
	IdempotencyKey string          `gorm:"size:128;not null;uniqueIndex:ledger_entries_account_key"`
	CreatedAt      time.Time
}

// TableName specifies the table name for the Entry model.
func (Entry) TableName() string {
	return "ledger_entries"
}

type totalsRow struct {
	Count int64
	Sum   decimal.Decimal
}
