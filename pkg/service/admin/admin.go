// Package admin implements operator adjustments and account listings. Every
// call re-checks the actor's admin flag in the database.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	domainuser "github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/user"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the part of the ledger service admin operations need.
type Ledger interface {
	ledgersvc.Submitter
	Reconcile(ctx context.Context, accountID uuid.UUID) (*ledgersvc.Reconciliation, error)
}

// AdjustRequest targets an account by id or by its owner's email.
type AdjustRequest struct {
	Target         string
	Delta          decimal.Decimal
	Reason         string
	IdempotencyKey string
}

// Service provides administrative ledger operations.
type Service struct {
	uow    repository.UnitOfWork
	ledger Ledger
	logger *slog.Logger
}

// New creates a Service.
func New(uow repository.UnitOfWork, l Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, ledger: l, logger: logger.With("context", "AdminService")}
}

// Authorize returns domain.ErrForbidden unless actorUserID owns an admin
// account.
func (s *Service) Authorize(ctx context.Context, actorUserID uuid.UUID) error {
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return err
	}
	acct, err := accounts.GetByUser(ctx, actorUserID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return domain.ErrForbidden
	}
	if err != nil {
		return err
	}
	if !acct.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

// Adjust applies a signed delta to the target account on behalf of an admin.
func (s *Service) Adjust(ctx context.Context, actorUserID uuid.UUID, req AdjustRequest) (*ledgersvc.Result, error) {
	if err := s.Authorize(ctx, actorUserID); err != nil {
		s.logger.Warn("Adjustment refused", "actor_id", actorUserID, "error", err)
		return nil, err
	}
	res, err := s.adjust(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Adjustment applied",
		"actor_id", actorUserID,
		"account_id", res.Entry.AccountID,
		"entry_id", res.Entry.ID,
		"delta", ledger.FormatAmount(res.Entry.Delta),
		"replayed", res.Replayed,
	)
	return res, nil
}

// AdjustAsOperator applies an adjustment without an actor. It backs the
// admin CLI, which runs with direct database access.
func (s *Service) AdjustAsOperator(ctx context.Context, req AdjustRequest) (*ledgersvc.Result, error) {
	return s.adjust(ctx, req)
}

func (s *Service) adjust(ctx context.Context, req AdjustRequest) (*ledgersvc.Result, error) {
	reason, err := adjustmentReason(req.Reason)
	if err != nil {
		return nil, err
	}
	acct, err := s.ResolveAccount(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	return s.ledger.Submit(ctx, ledgersvc.SubmitRequest{
		AccountID:      acct.ID,
		Delta:          req.Delta,
		Reason:         reason,
		IdempotencyKey: req.IdempotencyKey,
	})
}

// adjustmentReason defaults to admin_adjustment and also accepts top_up.
func adjustmentReason(raw string) (ledger.Reason, error) {
	if strings.TrimSpace(raw) == "" {
		return ledger.ReasonAdminAdjustment, nil
	}
	r, err := ledger.ParseReason(raw)
	if err != nil {
		return "", err
	}
	if r == ledger.ReasonPurchase {
		return "", ledger.ErrInvalidReason
	}
	return r, nil
}

// ResolveAccount finds an account by id or by owner email.
func (s *Service) ResolveAccount(ctx context.Context, target string) (*dto.AccountRead, error) {
	target = strings.TrimSpace(target)
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	if id, err := uuid.Parse(target); err == nil {
		return accounts.Get(ctx, id)
	}

	users, err := repository.Get[user.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	u, err := users.GetByEmail(ctx, target)
	if errors.Is(err, domainuser.ErrUserNotFound) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return accounts.GetByUser(ctx, u.ID)
}

// ListAccounts pages through accounts with their owner's email and balance.
func (s *Service) ListAccounts(ctx context.Context, actorUserID uuid.UUID, page, pageSize int) ([]*dto.AccountOwner, error) {
	if err := s.Authorize(ctx, actorUserID); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = ledgersvc.DefaultPageSize
	}
	if pageSize > ledgersvc.MaxPageSize {
		pageSize = ledgersvc.MaxPageSize
	}
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	return accounts.ListWithOwners(ctx, page, pageSize)
}

// Reconcile verifies an account's ledger on behalf of an admin.
func (s *Service) Reconcile(ctx context.Context, actorUserID, accountID uuid.UUID) (*ledgersvc.Reconciliation, error) {
	if err := s.Authorize(ctx, actorUserID); err != nil {
		return nil, err
	}
	return s.ledger.Reconcile(ctx, accountID)
}

// GrantAdmin sets the admin flag on the account owned by email.
func (s *Service) GrantAdmin(ctx context.Context, email string, isAdmin bool) (*dto.AccountRead, error) {
	var updated *dto.AccountRead
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := repository.Get[user.Repository](uow)
		if err != nil {
			return err
		}
		accounts, err := repository.Get[account.Repository](uow)
		if err != nil {
			return err
		}
		u, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		acct, err := accounts.GetByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if err := accounts.SetAdmin(ctx, acct.ID, isAdmin); err != nil {
			return err
		}
		acct.IsAdmin = isAdmin
		updated = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin flag changed", "email", email, "account_id", updated.ID, "is_admin", isAdmin)
	return updated, nil
}
