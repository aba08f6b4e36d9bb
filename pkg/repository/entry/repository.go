package entry

import (
	"context"

	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/google/uuid"
)

// Repository is the append-only ledger entry store.
type Repository interface {
	// Create appends an entry. A duplicate (account, idempotency key) or
	// (account, sequence) fails with domain.ErrAlreadyExists.
	Create(ctx context.Context, create dto.EntryCreate) error

	// GetByIdempotencyKey returns the entry recorded for (accountID, key).
	GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*dto.EntryRead, error)

	// ListByAccount returns up to limit entries with sequence greater than
	// afterSequence, ascending.
	ListByAccount(ctx context.Context, accountID uuid.UUID, afterSequence int64, limit int) ([]*dto.EntryRead, error)

	// Totals aggregates the account's entries.
	Totals(ctx context.Context, accountID uuid.UUID) (*dto.EntryTotals, error)
}
