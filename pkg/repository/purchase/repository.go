package purchase

import (
	"context"

	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/google/uuid"
)

// Repository stores purchases paid from the balance.
type Repository interface {
	Create(ctx context.Context, create dto.PurchaseCreate) error
	GetByEntry(ctx context.Context, entryID string) (*dto.PurchaseRead, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*dto.PurchaseRead, error)
}
