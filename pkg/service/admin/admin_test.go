package admin_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/amirasaad/ledger/internal/fixtures"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/service/admin"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store       *fixtures.MemoryUoW
	svc         *admin.Service
	adminUser   uuid.UUID
	plainUser   uuid.UUID
	plainAcctID uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := fixtures.NewMemoryUoW()
	h := &harness{store: store, adminUser: uuid.New(), plainUser: uuid.New()}
	store.SeedUser(dto.UserRead{ID: h.adminUser, Username: "root", Email: "root@example.com"})
	store.SeedUser(dto.UserRead{ID: h.plainUser, Username: "alice", Email: "Alice@example.com"})
	store.SeedAccount(h.adminUser, decimal.Zero, true)
	h.plainAcctID = store.SeedAccount(h.plainUser, decimal.Zero, false)

	proc := ledgersvc.NewProcessor(store, slog.Default())
	ledgerSvc := ledgersvc.New(store, proc, slog.Default())
	h.svc = admin.New(store, ledgerSvc, slog.Default())
	return h
}

func TestAdjust_ByAccountIDAndEmail(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Adjust(ctx, h.adminUser, admin.AdjustRequest{
		Target: h.plainAcctID.String(), Delta: decimal.RequireFromString("25"), IdempotencyKey: "a-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin_adjustment", res.Entry.Reason)

	res, err = h.svc.Adjust(ctx, h.adminUser, admin.AdjustRequest{
		Target: "alice@example.com", Delta: decimal.RequireFromString("-5"), Reason: "top_up", IdempotencyKey: "a-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "top_up", res.Entry.Reason)
	assert.Equal(t, h.plainAcctID, res.Entry.AccountID)

	acct, _ := h.store.Account(h.plainAcctID)
	assert.Equal(t, "20.00", ledger.FormatAmount(acct.Balance))
}

func TestAdjust_Refusals(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	req := admin.AdjustRequest{Target: h.plainAcctID.String(), Delta: decimal.RequireFromString("1"), IdempotencyKey: "k"}

	_, err := h.svc.Adjust(ctx, h.plainUser, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.svc.Adjust(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	bad := req
	bad.Reason = "purchase"
	_, err = h.svc.Adjust(ctx, h.adminUser, bad)
	assert.ErrorIs(t, err, ledger.ErrInvalidReason)

	bad = req
	bad.Target = "ghost@example.com"
	_, err = h.svc.Adjust(ctx, h.adminUser, bad)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	bad = req
	bad.Delta = decimal.RequireFromString("-1")
	_, err = h.svc.Adjust(ctx, h.adminUser, bad)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Empty(t, h.store.Entries(h.plainAcctID))
}

func TestListAccounts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	list, err := h.svc.ListAccounts(context.Background(), h.adminUser, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice@example.com", list[0].Email)
	assert.Equal(t, "root@example.com", list[1].Email)

	_, err = h.svc.ListAccounts(context.Background(), h.plainUser, 1, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGrantAdminAndReconcile(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Reconcile(ctx, h.plainUser, h.plainAcctID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	acct, err := h.svc.GrantAdmin(ctx, "alice@example.com", true)
	require.NoError(t, err)
	assert.True(t, acct.IsAdmin)

	_, err = h.svc.AdjustAsOperator(ctx, admin.AdjustRequest{
		Target: h.plainAcctID.String(), Delta: decimal.RequireFromString("3"), IdempotencyKey: "op-1",
	})
	require.NoError(t, err)

	rec, err := h.svc.Reconcile(ctx, h.plainUser, h.plainAcctID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(1), rec.Entries)
}
