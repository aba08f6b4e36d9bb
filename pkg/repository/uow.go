package repository

import (
	"context"
	"fmt"
)

// UnitOfWork defines the contract for transactional work and type-safe
// repository access. Every repository obtained from the UnitOfWork passed to
// Do shares that call's transaction.
//
// Example usage:
//
//	repoAny, err := uow.GetRepository((*account.Repository)(nil))
//	repo := repoAny.(account.Repository)
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. If fn returns an error
	// the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns the repository for the given interface pointer,
	// bound to the current transaction or to the plain connection outside Do.
	GetRepository(repoType any) (any, error)
}

// Get is a typed wrapper over UnitOfWork.GetRepository.
//
//	accounts, err := repository.Get[account.Repository](uow)
func Get[T any](uow UnitOfWork) (T, error) {
	var zero T
	repoAny, err := uow.GetRepository((*T)(nil))
	if err != nil {
		return zero, err
	}
	repo, ok := repoAny.(T)
	if !ok {
		return zero, fmt.Errorf("repository %T does not implement %T", repoAny, (*T)(nil))
	}
	return repo, nil
}
