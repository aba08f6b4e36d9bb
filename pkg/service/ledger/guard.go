package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/eventbus"
)

// Locker provides mutual exclusion across service instances. Acquire blocks
// until the lock for key is held or ctx is done and returns the release func.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// keyedMutex is a per-key lock whose entries are dropped once idle.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.unref(key, e)
		})
	}, nil
}

func (k *keyedMutex) unref(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports how many keys are currently tracked.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Guard serialises submissions per account and publishes an event for every
// newly recorded entry.
type Guard struct {
	next   Submitter
	local  *keyedMutex
	remote Locker
	bus    eventbus.Bus
	logger *slog.Logger
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithDistributedLock adds a lock shared between instances. It is acquired
// after the in-process lock.
func WithDistributedLock(l Locker) GuardOption {
	return func(g *Guard) {
		g.remote = l
	}
}

// WithEventBus sets the bus used to publish ledger.entry_recorded.
func WithEventBus(bus eventbus.Bus) GuardOption {
	return func(g *Guard) {
		g.bus = bus
	}
}

// NewGuard wraps next.
func NewGuard(next Submitter, logger *slog.Logger, opts ...GuardOption) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{
		next:   next,
		local:  newKeyedMutex(),
		logger: logger.With("context", "LedgerGuard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit implements Submitter.
func (g *Guard) Submit(ctx context.Context, req SubmitRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := req.AccountID.String()

	release, err := g.local.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	if g.remote != nil {
		releaseRemote, err := g.remote.Acquire(ctx, "account:"+key)
		if err != nil {
			g.logger.Warn("Failed to acquire distributed lock", "account_id", key, "error", err)
			return nil, err
		}
		defer releaseRemote()
	}

	res, err := g.next.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Replayed {
		g.publish(ctx, res)
	}
	return res, nil
}

func (g *Guard) publish(ctx context.Context, res *Result) {
	if g.bus == nil || res.Entry == nil {
		return
	}
	e := res.Entry
	evt := events.EntryRecorded{
		EntryID:      e.ID,
		AccountID:    e.AccountID,
		Sequence:     e.Sequence,
		Delta:        e.Delta,
		BalanceAfter: e.BalanceAfter,
		Reason:       e.Reason,
		CreatedAt:    e.CreatedAt,
	}
	// The entry is committed; a cancelled request must not drop the event.
	if err := g.bus.Emit(context.WithoutCancel(ctx), evt); err != nil {
		g.logger.Error("Failed to emit event",
			"event_type", evt.Type(),
			"entry_id", e.ID,
			"error", err,
		)
	}
}

var _ Submitter = (*Guard)(nil)
