package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/amirasaad/ledger/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxAttempts bounds the optimistic retry loop.
const DefaultMaxAttempts = 5

// AttachFunc runs inside the transaction that records entry, after the
// balance update. Returning an error rolls back the whole submission.
type AttachFunc func(ctx context.Context, uow repository.UnitOfWork, entry *dto.EntryRead) error

// SubmitRequest asks for one balance mutation.
type SubmitRequest struct {
	AccountID      uuid.UUID
	Delta          decimal.Decimal
	Reason         ledger.Reason
	IdempotencyKey string
	Attach         AttachFunc
}

// Validate checks the request without touching storage.
func (r SubmitRequest) Validate() error {
	if r.AccountID == uuid.Nil {
		return ledger.ErrAccountNotFound
	}
	if err := ledger.ValidateDelta(r.Delta); err != nil {
		return err
	}
	if !r.Reason.Valid() {
		return ledger.ErrInvalidReason
	}
	return ledger.ValidateIdempotencyKey(r.IdempotencyKey)
}

// Result is the outcome of a submission. Replayed is true when the entry was
// recorded by an earlier submission with the same idempotency key.
type Result struct {
	Entry    *dto.EntryRead
	Replayed bool
}

// Submitter records balance mutations.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*Result, error)
}

// Processor turns a SubmitRequest into exactly one ledger entry plus one
// balance update inside a single Unit of Work.
type Processor struct {
	uow         repository.UnitOfWork
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

// ProcessorOption customises a Processor.
type ProcessorOption func(*Processor)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a Processor.
func NewProcessor(uow repository.UnitOfWork, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		uow:         uow,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      logger.With("context", "LedgerProcessor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit implements Submitter.
func (p *Processor) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := p.logger.With(
		"account_id", req.AccountID,
		"reason", req.Reason,
		"idempotency_key", req.IdempotencyKey,
	)

	if existing, err := p.lookup(ctx, req); err != nil {
		return nil, err
	} else if existing != nil {
		logger.Info("Idempotent replay", "entry_id", existing.ID)
		return &Result{Entry: existing, Replayed: true}, nil
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recorded, err := p.attempt(ctx, req)
		switch {
		case err == nil:
			logger.Info("Entry recorded",
				"entry_id", recorded.ID,
				"sequence", recorded.Sequence,
				"delta", recorded.Delta.StringFixed(ledger.Scale),
				"balance_after", recorded.BalanceAfter.StringFixed(ledger.Scale),
				"attempt", attempt,
			)
			return &Result{Entry: recorded}, nil
		case errors.Is(err, ledger.ErrVersionConflict):
			logger.Debug("Version conflict, retrying", "attempt", attempt)
			continue
		case errors.Is(err, domain.ErrAlreadyExists):
			// A concurrent submission with the same key committed first.
			existing, lookupErr := p.lookup(ctx, req)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing == nil {
				return nil, err
			}
			logger.Info("Idempotent replay after race", "entry_id", existing.ID)
			return &Result{Entry: existing, Replayed: true}, nil
		default:
			return nil, err
		}
	}

	logger.Warn("Retry bound exhausted", "attempts", p.maxAttempts)
	return nil, ledger.ErrContention
}

func (p *Processor) attempt(ctx context.Context, req SubmitRequest) (*dto.EntryRead, error) {
	var recorded *dto.EntryRead
	err := p.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := repository.Get[account.Repository](uow)
		if err != nil {
			return err
		}
		entries, err := repository.Get[entry.Repository](uow)
		if err != nil {
			return err
		}

		acct, err := accounts.Get(ctx, req.AccountID)
		if err != nil {
			return err
		}
		change, err := accounts.ApplyDelta(ctx, acct.ID, req.Delta, acct.Version)
		if err != nil {
			return err
		}

		now := p.now().UTC()
		create := dto.EntryCreate{
			ID:             utils.NewULID(now),
			AccountID:      acct.ID,
			Sequence:       change.Version,
			Delta:          req.Delta,
			BalanceAfter:   change.Balance,
			Reason:         req.Reason.String(),
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
		}
		if err := entries.Create(ctx, create); err != nil {
			return err
		}
		recorded = &dto.EntryRead{
			ID:             create.ID,
			AccountID:      create.AccountID,
			Sequence:       create.Sequence,
			Delta:          create.Delta,
			BalanceAfter:   create.BalanceAfter,
			Reason:         create.Reason,
			IdempotencyKey: create.IdempotencyKey,
			CreatedAt:      create.CreatedAt,
		}

		if req.Attach != nil {
			if err := req.Attach(ctx, uow, recorded); err != nil {
				return fmt.Errorf("attach: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

func (p *Processor) lookup(ctx context.Context, req SubmitRequest) (*dto.EntryRead, error) {
	entries, err := repository.Get[entry.Repository](p.uow)
	if err != nil {
		return nil, err
	}
	existing, err := entries.GetByIdempotencyKey(ctx, req.AccountID, req.IdempotencyKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

var _ Submitter = (*Processor)(nil)
