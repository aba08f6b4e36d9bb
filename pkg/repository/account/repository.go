package account

import (
	"context"

	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the Account Store: durable access to account rows with
// compare-and-swap balance updates.
type Repository interface {
	// Create inserts a new account with a zero balance and version zero.
	Create(ctx context.Context, create dto.AccountCreate) error

	// Get retrieves an account by its ID.
	Get(ctx context.Context, id uuid.UUID) (*dto.AccountRead, error)

	// GetByUser retrieves the account owned by userID.
	GetByUser(ctx context.Context, userID uuid.UUID) (*dto.AccountRead, error)

	// ApplyDelta adds delta to the balance and increments the version in one
	// conditional statement. It fails with ledger.ErrVersionConflict when
	// expectedVersion is stale, ledger.ErrInsufficientFunds when the result
	// would be negative and ledger.ErrAccountNotFound for an unknown id.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (*dto.BalanceChange, error)

	// ListWithOwners pages through accounts joined with their owners.
	ListWithOwners(ctx context.Context, page, pageSize int) ([]*dto.AccountOwner, error)

	// SetAdmin flips the administrative flag.
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
}
