package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents an account record in the database.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	IsAdmin   bool            `gorm:"not null"`
	Version   int64           `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

type ownerRow struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
	Username  string
	Email     string
	Balance   decimal.Decimal
	IsAdmin   bool
}
