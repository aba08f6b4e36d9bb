// Package purchase turns a storefront cart into a balance debit and a
// purchase record committed together.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	domainpurchase "github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	repopurchase "github.com/amirasaad/ledger/pkg/repository/purchase"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest is a cart submitted by an authenticated user.
type CheckoutRequest struct {
	UserID         uuid.UUID
	Items          []domainpurchase.Item
	Total          decimal.Decimal
	IdempotencyKey string
}

// CheckoutResult carries the purchase and the debit that paid for it.
type CheckoutResult struct {
	Purchase *dto.PurchaseRead
	Entry    *dto.EntryRead
	Replayed bool
}

// Service implements purchase intake.
type Service struct {
	uow    repository.UnitOfWork
	ledger ledgersvc.Submitter
	bus    eventbus.Bus
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Service. bus may be nil.
func New(
	uow repository.UnitOfWork,
	submitter ledgersvc.Submitter,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:    uow,
		ledger: submitter,
		bus:    bus,
		now:    time.Now,
		logger: logger.With("context", "PurchaseService"),
	}
}

// Checkout validates the cart, debits the total with reason purchase and
// stores the purchase in the debit's transaction. Resubmitting the same
// idempotency key returns the original purchase.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := domainpurchase.ValidateCart(req.Items, req.Total); err != nil {
		return nil, err
	}
	log := s.logger.With("user_id", req.UserID, "idempotency_key", req.IdempotencyKey)

	accounts, err := repository.Get[account.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	acct, err := accounts.GetByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var created *dto.PurchaseRead
	res, err := s.ledger.Submit(ctx, ledgersvc.SubmitRequest{
		AccountID:      acct.ID,
		Delta:          req.Total.Neg(),
		Reason:         ledger.ReasonPurchase,
		IdempotencyKey: req.IdempotencyKey,
		Attach: func(ctx context.Context, uow repository.UnitOfWork, entry *dto.EntryRead) error {
			purchases, err := repository.Get[repopurchase.Repository](uow)
			if err != nil {
				return err
			}
			p := dto.PurchaseCreate{
				ID:            uuid.New(),
				UserID:        req.UserID,
				AccountID:     acct.ID,
				EntryID:       entry.ID,
				Items:         req.Items,
				PaymentMethod: domainpurchase.PaymentMethodBalance,
				TotalAmount:   req.Total,
				CreatedAt:     s.now().UTC(),
			}
			if err := purchases.Create(ctx, p); err != nil {
				return err
			}
			created = (*dto.PurchaseRead)(&p)
			return nil
		},
	})
	if err != nil {
		log.Warn("Checkout failed", "error", err)
		return nil, err
	}

	if res.Replayed {
		purchases, err := repository.Get[repopurchase.Repository](s.uow)
		if err != nil {
			return nil, err
		}
		original, err := purchases.GetByEntry(ctx, res.Entry.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("idempotency key %q belongs to a %s entry: %w",
				req.IdempotencyKey, res.Entry.Reason, domain.ErrAlreadyExists)
		}
		if err != nil {
			return nil, err
		}
		log.Info("Checkout replayed", "purchase_id", original.ID)
		return &CheckoutResult{Purchase: original, Entry: res.Entry, Replayed: true}, nil
	}

	log.Info("Checkout completed",
		"purchase_id", created.ID,
		"entry_id", res.Entry.ID,
		"total", ledger.FormatAmount(req.Total),
	)
	s.publish(ctx, created)
	return &CheckoutResult{Purchase: created, Entry: res.Entry}, nil
}

// List returns the user's purchases, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*dto.PurchaseRead, error) {
	purchases, err := repository.Get[repopurchase.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	return purchases.ListByUser(ctx, userID)
}

func (s *Service) publish(ctx context.Context, p *dto.PurchaseRead) {
	if s.bus == nil {
		return
	}
	evt := events.PurchaseCompleted{
		PurchaseID:  p.ID,
		UserID:      p.UserID,
		AccountID:   p.AccountID,
		EntryID:     p.EntryID,
		TotalAmount: p.TotalAmount,
	}
	if err := s.bus.Emit(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Error("Failed to emit event", "event_type", evt.Type(), "purchase_id", p.ID, "error", err)
	}
}
