package purchase_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/ledger/infra/eventbus"
	"github.com/amirasaad/ledger/internal/fixtures"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	domainpurchase "github.com/amirasaad/ledger/pkg/domain/purchase"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	purchasesvc "github.com/amirasaad/ledger/pkg/service/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *fixtures.MemoryUoW
	bus       *eventbus.MemoryEventBus
	svc       *purchasesvc.Service
	submitter ledgersvc.Submitter
	userID    uuid.UUID
	accountID uuid.UUID
}

func newHarness(t *testing.T, balance string) *harness {
	t.Helper()
	store := fixtures.NewMemoryUoW()
	bus := eventbus.NewWithMemory(slog.Default())
	userID := uuid.New()
	accountID := store.SeedAccount(userID, decimal.RequireFromString(balance), false)
	guard := ledgersvc.NewGuard(ledgersvc.NewProcessor(store, slog.Default()), slog.Default())
	return &harness{
		store:     store,
		bus:       bus,
		svc:       purchasesvc.New(store, guard, bus, slog.Default()),
		submitter: guard,
		userID:    userID,
		accountID: accountID,
	}
}

func cart() ([]domainpurchase.Item, decimal.Decimal) {
	items := []domainpurchase.Item{
		{ProductID: "p-1", Name: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("7.50")},
		{ProductID: "p-2", Name: "Tea", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
	return items, decimal.RequireFromString("20.00")
}

func TestCheckout_DebitsAndRecordsPurchase(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "50.00")
	items, total := cart()

	res, err := h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
		UserID: h.userID, Items: items, Total: total, IdempotencyKey: "cart-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, res.Entry.ID, res.Purchase.EntryID)
	assert.Equal(t, "purchase", res.Entry.Reason)
	assert.Equal(t, "-20.00", ledger.FormatAmount(res.Entry.Delta))
	assert.Equal(t, domainpurchase.PaymentMethodBalance, res.Purchase.PaymentMethod)

	acct, _ := h.store.Account(h.accountID)
	assert.Equal(t, "30.00", ledger.FormatAmount(acct.Balance))
	require.Len(t, h.store.Purchases(), 1)

	published := h.bus.Published()
	require.Len(t, published, 1)
	evt, ok := published[0].(events.PurchaseCompleted)
	require.True(t, ok)
	assert.Equal(t, res.Purchase.ID, evt.PurchaseID)
	assert.True(t, evt.TotalAmount.Equal(total))
}

func TestCheckout_ReplayReturnsOriginal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "50.00")
	items, total := cart()
	req := purchasesvc.CheckoutRequest{UserID: h.userID, Items: items, Total: total, IdempotencyKey: "cart-1"}

	first, err := h.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	second, err := h.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Purchase.ID, second.Purchase.ID)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Len(t, h.store.Purchases(), 1)
	assert.Len(t, h.bus.Published(), 1)
	acct, _ := h.store.Account(h.accountID)
	assert.Equal(t, "30.00", ledger.FormatAmount(acct.Balance))
}

func TestCheckout_InsufficientFundsLeavesNoPurchase(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "10.00")
	items, total := cart()

	_, err := h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
		UserID: h.userID, Items: items, Total: total, IdempotencyKey: "cart-1",
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Empty(t, h.store.Purchases())
	assert.Empty(t, h.store.Entries(h.accountID))
	assert.Empty(t, h.bus.Published())
}

func TestCheckout_KeyUsedByTopUp(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "0")
	_, err := h.submitter.Submit(context.Background(), ledgersvc.SubmitRequest{
		AccountID: h.accountID, Delta: decimal.RequireFromString("50"), Reason: ledger.ReasonTopUp, IdempotencyKey: "k",
	})
	require.NoError(t, err)

	items, total := cart()
	_, err = h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
		UserID: h.userID, Items: items, Total: total, IdempotencyKey: "k",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCheckout_Validation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "50.00")
	items, _ := cart()

	_, err := h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{UserID: h.userID, IdempotencyKey: "k", Total: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domainpurchase.ErrEmptyCart)

	_, err = h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
		UserID: h.userID, Items: items, Total: decimal.RequireFromString("19.99"), IdempotencyKey: "k",
	})
	assert.ErrorIs(t, err, domainpurchase.ErrTotalMismatch)

	_, err = h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
		UserID: uuid.New(), Items: items, Total: decimal.RequireFromString("20"), IdempotencyKey: "k",
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "100.00")
	items, total := cart()
	for _, key := range []string{"a", "b"} {
		_, err := h.svc.Checkout(context.Background(), purchasesvc.CheckoutRequest{
			UserID: h.userID, Items: items, Total: total, IdempotencyKey: key,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := h.svc.List(context.Background(), h.userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	list, err = h.svc.List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, list)
}
