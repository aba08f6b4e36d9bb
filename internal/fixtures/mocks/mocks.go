// Package mocks holds testify mocks for the repository and event bus
// interfaces.
package mocks

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUnitOfWork runs Do callbacks against itself and hands out the
// repositories it was built with.
type MockUnitOfWork struct {
	mock.Mock
	Accounts account.Repository
	Entries  entry.Repository
}

// NewMockUnitOfWork creates a MockUnitOfWork whose expectations are asserted
// on cleanup.
func NewMockUnitOfWork(t testingT) *MockUnitOfWork {
	m := &MockUnitOfWork{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockUnitOfWork) GetRepository(repoType any) (any, error) {
	switch repoType.(type) {
	case *account.Repository:
		if m.Accounts != nil {
			return m.Accounts, nil
		}
	case *entry.Repository:
		if m.Entries != nil {
			return m.Entries, nil
		}
	}
	args := m.Called(repoType)
	return args.Get(0), args.Error(1)
}

// MockAccountRepository mocks account.Repository.
type MockAccountRepository struct {
	mock.Mock
}

func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, create dto.AccountCreate) error {
	return m.Called(ctx, create).Error(0)
}

func (m *MockAccountRepository) Get(ctx context.Context, id uuid.UUID) (*dto.AccountRead, error) {
	args := m.Called(ctx, id)
	acct, _ := args.Get(0).(*dto.AccountRead)
	return acct, args.Error(1)
}

func (m *MockAccountRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*dto.AccountRead, error) {
	args := m.Called(ctx, userID)
	acct, _ := args.Get(0).(*dto.AccountRead)
	return acct, args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(
	ctx context.Context,
	id uuid.UUID,
	delta decimal.Decimal,
	expectedVersion int64,
) (*dto.BalanceChange, error) {
	args := m.Called(ctx, id, delta, expectedVersion)
	change, _ := args.Get(0).(*dto.BalanceChange)
	return change, args.Error(1)
}

func (m *MockAccountRepository) ListWithOwners(ctx context.Context, page, pageSize int) ([]*dto.AccountOwner, error) {
	args := m.Called(ctx, page, pageSize)
	owners, _ := args.Get(0).([]*dto.AccountOwner)
	return owners, args.Error(1)
}

func (m *MockAccountRepository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	return m.Called(ctx, id, isAdmin).Error(0)
}

// MockEntryRepository mocks entry.Repository.
type MockEntryRepository struct {
	mock.Mock
}

func NewMockEntryRepository(t testingT) *MockEntryRepository {
	m := &MockEntryRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEntryRepository) Create(ctx context.Context, create dto.EntryCreate) error {
	return m.Called(ctx, create).Error(0)
}

func (m *MockEntryRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*dto.EntryRead, error) {
	args := m.Called(ctx, accountID, key)
	e, _ := args.Get(0).(*dto.EntryRead)
	return e, args.Error(1)
}

func (m *MockEntryRepository) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
	afterSequence int64,
	limit int,
) ([]*dto.EntryRead, error) {
	args := m.Called(ctx, accountID, afterSequence, limit)
	list, _ := args.Get(0).([]*dto.EntryRead)
	return list, args.Error(1)
}

func (m *MockEntryRepository) Totals(ctx context.Context, accountID uuid.UUID) (*dto.EntryTotals, error) {
	args := m.Called(ctx, accountID)
	totals, _ := args.Get(0).(*dto.EntryTotals)
	return totals, args.Error(1)
}

// MockBus mocks eventbus.Bus.
type MockBus struct {
	mock.Mock
}

func NewMockBus(t testingT) *MockBus {
	m := &MockBus{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	m.Called(eventType, handler)
}

func (m *MockBus) Emit(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

var (
	_ repository.UnitOfWork = (*MockUnitOfWork)(nil)
	_ account.Repository    = (*MockAccountRepository)(nil)
	_ entry.Repository      = (*MockEntryRepository)(nil)
	_ eventbus.Bus          = (*MockBus)(nil)
)
