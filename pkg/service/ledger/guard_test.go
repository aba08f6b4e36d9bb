package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/ledger/infra/eventbus"
	"github.com/amirasaad/ledger/internal/fixtures"
	"github.com/amirasaad/ledger/internal/fixtures/mocks"
	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newGuard(store *fixtures.MemoryUoW, opts ...ledgersvc.GuardOption) *ledgersvc.Guard {
	return ledgersvc.NewGuard(ledgersvc.NewProcessor(store, slog.Default()), slog.Default(), opts...)
}

func TestGuard_ConcurrentCreditsNeverLoseUpdates(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	g := newGuard(store)

	const n = 50
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			_, err := g.Submit(context.Background(), submit(accountID, "1.25", ledger.ReasonTopUp, fmt.Sprintf("k-%d", i)))
			return err
		})
	}
	require.NoError(t, eg.Wait())

	acct, _ := store.Account(accountID)
	assert.True(t, acct.Balance.Equal(amount("62.50")), acct.Balance.String())
	assert.Equal(t, int64(n), acct.Version)

	entries := store.Entries(accountID)
	require.Len(t, entries, n)
	sum := decimal.Zero
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Sequence)
		sum = sum.Add(e.Delta)
	}
	assert.True(t, sum.Equal(acct.Balance))
	assert.True(t, entries[n-1].BalanceAfter.Equal(acct.Balance))
}

func TestGuard_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	g := newGuard(store)
	_, err := g.Submit(context.Background(), submit(accountID, "100.00", ledger.ReasonTopUp, "seed"))
	require.NoError(t, err)

	var ok, rejected atomic.Int32
	var eg errgroup.Group
	for i := 0; i < 10; i++ {
		eg.Go(func() error {
			_, err := g.Submit(context.Background(), submit(accountID, "-20.00", ledger.ReasonPurchase, fmt.Sprintf("d-%d", i)))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ledger.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(5), ok.Load())
	assert.Equal(t, int32(5), rejected.Load())
	acct, _ := store.Account(accountID)
	assert.True(t, acct.Balance.IsZero())
	assert.Len(t, store.Entries(accountID), 6)
}

func TestGuard_ConcurrentReplaysRecordOnce(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	g := newGuard(store)

	var replays atomic.Int32
	var eg errgroup.Group
	for i := 0; i < 20; i++ {
		eg.Go(func() error {
			res, err := g.Submit(context.Background(), submit(accountID, "5.00", ledger.ReasonTopUp, "twin"))
			if err != nil {
				return err
			}
			if res.Replayed {
				replays.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(19), replays.Load())
	assert.Len(t, store.Entries(accountID), 1)
}

// blockingSubmitter parks submissions for one account until released.
type blockingSubmitter struct {
	blocked uuid.UUID
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) Submit(ctx context.Context, req ledgersvc.SubmitRequest) (*ledgersvc.Result, error) {
	if req.AccountID == b.blocked {
		close(b.entered)
		<-b.release
	}
	return &ledgersvc.Result{Replayed: true}, nil
}

func TestGuard_AccountsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()
	a, b := uuid.New(), uuid.New()
	next := &blockingSubmitter{blocked: a, entered: make(chan struct{}), release: make(chan struct{})}
	g := ledgersvc.NewGuard(next, slog.Default())

	done := make(chan error, 1)
	go func() {
		_, err := g.Submit(context.Background(), submit(a, "1.00", ledger.ReasonTopUp, "ka"))
		done <- err
	}()
	<-next.entered

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := g.Submit(ctx, submit(b, "1.00", ledger.ReasonTopUp, "kb"))
	require.NoError(t, err)

	// Same account waits and gives up with the context.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, err = g.Submit(short, submit(a, "1.00", ledger.ReasonTopUp, "ka2"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(next.release)
	require.NoError(t, <-done)
}

func TestGuard_EmitsOnlyForNewEntries(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	bus := eventbus.NewWithMemory(slog.Default())
	g := newGuard(store, ledgersvc.WithEventBus(bus))

	res, err := g.Submit(context.Background(), submit(accountID, "7.00", ledger.ReasonTopUp, "k"))
	require.NoError(t, err)
	_, err = g.Submit(context.Background(), submit(accountID, "7.00", ledger.ReasonTopUp, "k"))
	require.NoError(t, err)
	_, err = g.Submit(context.Background(), submit(accountID, "-9.00", ledger.ReasonPurchase, "k2"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	published := bus.Published()
	require.Len(t, published, 1)
	evt, ok := published[0].(events.EntryRecorded)
	require.True(t, ok)
	assert.Equal(t, res.Entry.ID, evt.EntryID)
	assert.Equal(t, accountID, evt.AccountID)
	assert.Equal(t, int64(1), evt.Sequence)
	assert.Equal(t, "top_up", evt.Reason)
}

func TestGuard_EmitFailureDoesNotFailSubmission(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	bus := mocks.NewMockBus(t)
	bus.On("Emit", mock.Anything, mock.AnythingOfType("events.EntryRecorded")).
		Return(errors.New("broker down")).Once()
	g := newGuard(store, ledgersvc.WithEventBus(bus))

	res, err := g.Submit(context.Background(), submit(accountID, "3.00", ledger.ReasonTopUp, "k"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Len(t, store.Entries(accountID), 1)
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestGuard_DistributedLock(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	locker := &recordingLocker{}
	g := newGuard(store, ledgersvc.WithDistributedLock(locker))

	_, err := g.Submit(context.Background(), submit(accountID, "1.00", ledger.ReasonTopUp, "k"))
	require.NoError(t, err)
	assert.Equal(t, []string{"account:" + accountID.String()}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestGuard_DistributedLockFailure(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	accountID := store.SeedAccount(uuid.New(), decimal.Zero, false)
	lockErr := errors.New("redis unavailable")
	g := newGuard(store, ledgersvc.WithDistributedLock(&recordingLocker{err: lockErr}))

	_, err := g.Submit(context.Background(), submit(accountID, "1.00", ledger.ReasonTopUp, "k"))
	require.ErrorIs(t, err, lockErr)
	assert.Empty(t, store.Entries(accountID))
}
