package repository

import (
	"context"
	"fmt"
	"reflect"

	accountrepo "github.com/amirasaad/ledger/infra/repository/account"
	entryrepo "github.com/amirasaad/ledger/infra/repository/entry"
	"github.com/amirasaad/ledger/infra/repository/gormerr"
	purchaserepo "github.com/amirasaad/ledger/infra/repository/purchase"
	userrepo "github.com/amirasaad/ledger/infra/repository/user"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/amirasaad/ledger/pkg/repository/purchase"
	"github.com/amirasaad/ledger/pkg/repository/user"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// Repositories handed out inside Do share that transaction.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*account.Repository)(nil)).Elem():  func(db *gorm.DB) any { return accountrepo.New(db) },
			reflect.TypeOf((*entry.Repository)(nil)).Elem():    func(db *gorm.DB) any { return entryrepo.New(db) },
			reflect.TypeOf((*purchase.Repository)(nil)).Elem(): func(db *gorm.DB) any { return purchaserepo.New(db) },
			reflect.TypeOf((*user.Repository)(nil)).Elem():     func(db *gorm.DB) any { return userrepo.New(db) },
		},
	}
}

// Do runs fn in a transaction. Errors raised at commit time (serialization
// failures, deadlocks) are mapped to domain errors.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	})
	return gormerr.MapGormErrorToDomain(err)
}

// GetRepository returns the repository registered for the interface that
// repoType points to, e.g. (*account.Repository)(nil).
func (u *UoW) GetRepository(repoType any) (any, error) {
	t := reflect.TypeOf(repoType)
	if t == nil {
		return nil, fmt.Errorf("unsupported repository type: nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	constructor, ok := u.repoRegistry[t]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", t)
	}
	session := u.tx
	if session == nil {
		session = u.db
	}
	return constructor(session), nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
