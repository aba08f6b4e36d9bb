// Package ledger is the Balance Ledger: the only path through which an
// account balance changes.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/metrics"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultPageSize is used when ListEntries is called without a limit.
	DefaultPageSize = 50
	// MaxPageSize caps the limit a caller may request.
	MaxPageSize = 200
)

// EntryPage is one page of an account's entries.
type EntryPage struct {
	Entries    []*dto.EntryRead
	NextCursor string
}

// Reconciliation compares the stored balance with the entry history.
type Reconciliation struct {
	AccountID   uuid.UUID
	Balance     decimal.Decimal
	Sum         decimal.Decimal
	Entries     int64
	LastBalance decimal.Decimal
	Version     int64
	Consistent  bool
}

// Service is the ledger boundary used by transports and collaborators.
type Service struct {
	uow             repository.UnitOfWork
	submitter       Submitter
	defaultPageSize int
	maxPageSize     int
	logger          *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithPageSizes overrides the default and maximum page sizes of ListEntries.
func WithPageSizes(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultPageSize = def
		}
		if max > 0 {
			s.maxPageSize = max
		}
		if s.defaultPageSize > s.maxPageSize {
			s.defaultPageSize = s.maxPageSize
		}
	}
}

// New creates a Service. submitter is normally a Guard wrapping a Processor.
func New(uow repository.UnitOfWork, submitter Submitter, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uow:             uow,
		submitter:       submitter,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
		logger:          logger.With("context", "LedgerService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records one balance mutation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	start := time.Now()
	res, err := s.submitter.Submit(ctx, req)
	outcome := metrics.SubmitOutcome(res != nil && res.Replayed, err)
	reason := string(req.Reason)
	if !req.Reason.Valid() {
		reason = "invalid"
	}
	metrics.LedgerSubmissions.WithLabelValues(reason, outcome).Inc()
	metrics.LedgerSubmitDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return res, err
}

// GetAccount returns the account by id.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*dto.AccountRead, error) {
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	acct, err := accounts.Get(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	return acct, err
}

// GetAccountByUser returns the account owned by userID.
func (s *Service) GetAccountByUser(ctx context.Context, userID uuid.UUID) (*dto.AccountRead, error) {
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	acct, err := accounts.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	return acct, err
}

// GetBalance returns the current balance.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// ListEntries returns entries in ascending sequence order starting after
// cursor. An empty cursor starts at the first entry. A limit of zero or less
// selects the default page size.
func (s *Service) ListEntries(ctx context.Context, accountID uuid.UUID, cursor string, limit int) (*EntryPage, error) {
	after, err := ParseCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := repository.Get[entry.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	list, err := entries.ListByAccount(ctx, accountID, after, limit)
	if err != nil {
		return nil, err
	}

	page := &EntryPage{Entries: list}
	if len(list) == limit {
		page.NextCursor = FormatCursor(list[len(list)-1].Sequence)
	}
	return page, nil
}

// Reconcile checks that the stored balance equals both the sum of all deltas
// and the balance recorded on the last entry.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := repository.Get[account.Repository](uow)
		if err != nil {
			return err
		}
		entries, err := repository.Get[entry.Repository](uow)
		if err != nil {
			return err
		}
		acct, err := accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		totals, err := entries.Totals(ctx, accountID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{
			AccountID:   acct.ID,
			Balance:     acct.Balance,
			Sum:         totals.Sum,
			Entries:     totals.Count,
			LastBalance: totals.LastBalance,
			Version:     acct.Version,
		}
		rec.Consistent = acct.Balance.Equal(totals.Sum) &&
			acct.Balance.Equal(totals.LastBalance) &&
			acct.Version == totals.LastSequence
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if !rec.Consistent {
		s.logger.Error("Ledger inconsistency detected",
			"account_id", accountID,
			"balance", rec.Balance.StringFixed(ledger.Scale),
			"sum", rec.Sum.StringFixed(ledger.Scale),
			"last_balance", rec.LastBalance.StringFixed(ledger.Scale),
			"version", rec.Version,
		)
	}
	return rec, nil
}

// ParseCursor decodes a page cursor. The empty cursor is sequence zero.
func ParseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, ledger.ErrInvalidCursor
	}
	return seq, nil
}

// FormatCursor encodes the last returned sequence.
func FormatCursor(sequence int64) string {
	return strconv.FormatInt(sequence, 10)
}
