// Package fixtures provides in-memory repositories and a Unit of Work for
// service tests.
package fixtures

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	domainuser "github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/amirasaad/ledger/pkg/repository/purchase"
	"github.com/amirasaad/ledger/pkg/repository/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type state struct {
	accounts  map[uuid.UUID]dto.AccountRead
	entries   []dto.EntryRead
	purchases []dto.PurchaseRead
	users     map[uuid.UUID]dto.UserRead
}

func newState() *state {
	return &state{
		accounts: make(map[uuid.UUID]dto.AccountRead),
		users:    make(map[uuid.UUID]dto.UserRead),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	c.entries = slices.Clone(s.entries)
	c.purchases = slices.Clone(s.purchases)
	return c
}

// MemoryUoW is an in-memory repository.UnitOfWork. Do calls are serialised
// and a failing fn restores the state it started from.
//
// txMu is one lock for the whole store, so transactions on different
// accounts never overlap. Concurrency tests built on this fixture show
// that results stay consistent, not that accounts proceed in parallel;
// TestGuard_AccountsDoNotBlockEachOther covers that.
type MemoryUoW struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state

	// BeforeCommit, when set, runs after fn succeeds and may veto the commit.
	BeforeCommit func() error
}

// NewMemoryUoW returns an empty store.
func NewMemoryUoW() *MemoryUoW {
	return &MemoryUoW{data: newState()}
}

// Do implements repository.UnitOfWork.
func (m *MemoryUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	err := fn(m)
	if err == nil && m.BeforeCommit != nil {
		err = m.BeforeCommit()
	}
	if err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// GetRepository implements repository.UnitOfWork.
func (m *MemoryUoW) GetRepository(repoType any) (any, error) {
	switch repoType.(type) {
	case *account.Repository:
		return &memoryAccounts{m}, nil
	case *entry.Repository:
		return &memoryEntries{m}, nil
	case *purchase.Repository:
		return &memoryPurchases{m}, nil
	case *user.Repository:
		return &memoryUsers{m}, nil
	}
	return nil, domain.ErrNotFound
}

// SeedAccount inserts an account with the given balance and version zero.
func (m *MemoryUoW) SeedAccount(userID uuid.UUID, balance decimal.Decimal, isAdmin bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	now := time.Now().UTC()
	m.data.accounts[id] = dto.AccountRead{
		ID:        id,
		UserID:    userID,
		Balance:   balance,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// SeedUser inserts a user.
func (m *MemoryUoW) SeedUser(u dto.UserRead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	m.data.users[u.ID] = u
}

// Account returns a copy of the stored account.
func (m *MemoryUoW) Account(id uuid.UUID) (dto.AccountRead, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data.accounts[id]
	return a, ok
}

// Entries returns the account's entries in sequence order.
func (m *MemoryUoW) Entries(accountID uuid.UUID) []dto.EntryRead {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dto.EntryRead
	for _, e := range m.data.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Purchases returns every stored purchase.
func (m *MemoryUoW) Purchases() []dto.PurchaseRead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data.purchases)
}

// CorruptBalance overwrites a balance without recording an entry.
func (m *MemoryUoW) CorruptBalance(id uuid.UUID, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.data.accounts[id]
	a.Balance = balance
	m.data.accounts[id] = a
}

type memoryAccounts struct{ m *MemoryUoW }

func (r *memoryAccounts) Create(_ context.Context, create dto.AccountCreate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.data.accounts[create.ID]; ok {
		return domain.ErrAlreadyExists
	}
	for _, a := range r.m.data.accounts {
		if a.UserID == create.UserID {
			return domain.ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	r.m.data.accounts[create.ID] = dto.AccountRead{
		ID:        create.ID,
		UserID:    create.UserID,
		Balance:   decimal.Zero,
		IsAdmin:   create.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *memoryAccounts) Get(_ context.Context, id uuid.UUID) (*dto.AccountRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.data.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (r *memoryAccounts) GetByUser(_ context.Context, userID uuid.UUID) (*dto.AccountRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.data.accounts {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, ledger.ErrAccountNotFound
}

func (r *memoryAccounts) ApplyDelta(
	_ context.Context,
	id uuid.UUID,
	delta decimal.Decimal,
	expectedVersion int64,
) (*dto.BalanceChange, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.data.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	if a.Version != expectedVersion {
		return nil, ledger.ErrVersionConflict
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return nil, ledger.ErrInsufficientFunds
	}
	a.Balance = next
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	r.m.data.accounts[id] = a
	return &dto.BalanceChange{Balance: a.Balance, Version: a.Version}, nil
}

func (r *memoryAccounts) ListWithOwners(_ context.Context, page, pageSize int) ([]*dto.AccountOwner, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*dto.AccountOwner
	for _, a := range r.m.data.accounts {
		u := r.m.data.users[a.UserID]
		all = append(all, &dto.AccountOwner{
			AccountID: a.ID,
			UserID:    a.UserID,
			Username:  u.Username,
			Email:     u.Email,
			Balance:   a.Balance,
			IsAdmin:   a.IsAdmin,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*dto.AccountOwner{}, nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], nil
}

func (r *memoryAccounts) SetAdmin(_ context.Context, id uuid.UUID, isAdmin bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.data.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.IsAdmin = isAdmin
	r.m.data.accounts[id] = a
	return nil
}

type memoryEntries struct{ m *MemoryUoW }

func (r *memoryEntries) Create(_ context.Context, create dto.EntryCreate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.data.entries {
		if e.AccountID != create.AccountID {
			continue
		}
		if e.IdempotencyKey == create.IdempotencyKey || e.Sequence == create.Sequence {
			return domain.ErrAlreadyExists
		}
	}
	r.m.data.entries = append(r.m.data.entries, dto.EntryRead(create))
	return nil
}

func (r *memoryEntries) GetByIdempotencyKey(_ context.Context, accountID uuid.UUID, key string) (*dto.EntryRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.data.entries {
		if e.AccountID == accountID && e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryEntries) ListByAccount(_ context.Context, accountID uuid.UUID, afterSequence int64, limit int) ([]*dto.EntryRead, error) {
	all := r.m.Entries(accountID)
	out := make([]*dto.EntryRead, 0, limit)
	for i := range all {
		if all[i].Sequence <= afterSequence {
			continue
		}
		out = append(out, &all[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryEntries) Totals(_ context.Context, accountID uuid.UUID) (*dto.EntryTotals, error) {
	totals := &dto.EntryTotals{Sum: decimal.Zero, LastBalance: decimal.Zero}
	for _, e := range r.m.Entries(accountID) {
		totals.Count++
		totals.Sum = totals.Sum.Add(e.Delta)
		totals.LastSequence = e.Sequence
		totals.LastBalance = e.BalanceAfter
	}
	return totals, nil
}

type memoryPurchases struct{ m *MemoryUoW }

func (r *memoryPurchases) Create(_ context.Context, create dto.PurchaseCreate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.data.purchases {
		if p.ID == create.ID || p.EntryID == create.EntryID {
			return domain.ErrAlreadyExists
		}
	}
	r.m.data.purchases = append(r.m.data.purchases, dto.PurchaseRead(create))
	return nil
}

func (r *memoryPurchases) GetByEntry(_ context.Context, entryID string) (*dto.PurchaseRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.data.purchases {
		if p.EntryID == entryID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryPurchases) ListByUser(_ context.Context, userID uuid.UUID) ([]*dto.PurchaseRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*dto.PurchaseRead, 0)
	for i := range r.m.data.purchases {
		if r.m.data.purchases[i].UserID == userID {
			p := r.m.data.purchases[i]
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryUsers struct{ m *MemoryUoW }

func (r *memoryUsers) Create(_ context.Context, create *dto.UserCreate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	email := strings.ToLower(create.Email)
	for _, u := range r.m.data.users {
		if u.ID == create.ID || u.Username == create.Username || u.Email == email {
			return domain.ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	r.m.data.users[create.ID] = dto.UserRead{
		ID:             create.ID,
		Username:       create.Username,
		HashedPassword: create.Password,
		Email:          email,
		Names:          create.Names,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (r *memoryUsers) Update(_ context.Context, id uuid.UUID, update *dto.UserUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.data.users[id]
	if !ok {
		return domainuser.ErrUserNotFound
	}
	if update.Names != nil {
		u.Names = *update.Names
	}
	if update.Password != nil {
		u.HashedPassword = *update.Password
	}
	u.UpdatedAt = time.Now().UTC()
	r.m.data.users[id] = u
	return nil
}

func (r *memoryUsers) Get(_ context.Context, id uuid.UUID) (*dto.UserRead, error) {
	return r.find(func(u dto.UserRead) bool { return u.ID == id })
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*dto.UserRead, error) {
	email = strings.ToLower(email)
	return r.find(func(u dto.UserRead) bool { return u.Email == email })
}

func (r *memoryUsers) GetByUsername(_ context.Context, username string) (*dto.UserRead, error) {
	return r.find(func(u dto.UserRead) bool { return u.Username == username })
}

func (r *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *memoryUsers) find(match func(dto.UserRead) bool) (*dto.UserRead, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.data.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domainuser.ErrUserNotFound
}

var _ repository.UnitOfWork = (*MemoryUoW)(nil)
