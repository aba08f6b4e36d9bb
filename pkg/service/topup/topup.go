// Package topup lets a user credit their own balance.
package topup

import (
	"context"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service credits accounts with reason top_up.
type Service struct {
	uow    repository.UnitOfWork
	ledger ledgersvc.Submitter
	logger *slog.Logger
}

// New creates a Service.
func New(uow repository.UnitOfWork, submitter ledgersvc.Submitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, ledger: submitter, logger: logger.With("context", "TopUpService")}
}

// TopUp adds a positive amount to the account owned by userID.
func (s *Service) TopUp(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	idempotencyKey string,
) (*ledgersvc.Result, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	acct, err := accounts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Submit(ctx, ledgersvc.SubmitRequest{
		AccountID:      acct.ID,
		Delta:          amount,
		Reason:         ledger.ReasonTopUp,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		s.logger.Warn("Top-up failed", "user_id", userID, "error", err)
		return nil, err
	}
	return res, nil
}
