package purchase

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Items is the jsonb column holding the cart lines.
type Items []purchase.Item

// Value implements driver.Valuer.
func (i Items) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (i *Items) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*i = Items{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("purchase items: unsupported type %T", src)
	}
	return json.Unmarshal(raw, i)
}

// Purchase is a checkout paid from the balance.
type Purchase struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null"`
	EntryID       string          `gorm:"type:char(26);not null;uniqueIndex"`
	Items         Items           `gorm:"type:jsonb;not null"`
	PaymentMethod string          `gorm:"size:32;not null"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CreatedAt     time.Time
}

// TableName specifies the table name for the Purchase model.
func (Purchase) TableName() string {
	return "purchases"
}
