// Package gormerr translates GORM and Postgres driver errors into domain
// errors so storage details stay inside the infrastructure layer.
package gormerr

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger cares about.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeRaiseException       = "P0001"
)

// BalanceConstraint is the CHECK constraint keeping account balances
// non-negative.
const BalanceConstraint = "accounts_balance_non_negative"

// MapGormErrorToDomain converts GORM and pgconn errors to domain errors.
// It traverses the error chain and returns the original error when nothing
// matches.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.ErrAlreadyExists
		case codeSerializationFailure, codeDeadlockDetected:
			return ledger.ErrVersionConflict
		case codeCheckViolation:
			if pgErr.ConstraintName == BalanceConstraint {
				return ledger.ErrInsufficientFunds
			}
			return domain.ErrValidation
		case codeForeignKeyViolation:
			return domain.ErrNotFound
		case codeNumericOutOfRange:
			return domain.ErrValidation
		}
	}

	currentErr := err
	for currentErr != nil {
		switch {
		case errors.Is(currentErr, gorm.ErrDuplicatedKey):
			return domain.ErrAlreadyExists
		case errors.Is(currentErr, gorm.ErrRecordNotFound):
			return domain.ErrNotFound
		case errors.Is(currentErr, gorm.ErrForeignKeyViolated):
			return domain.ErrNotFound
		case errors.Is(currentErr, gorm.ErrCheckConstraintViolated):
			return domain.ErrValidation
		}
		currentErr = errors.Unwrap(currentErr)
	}

	return err
}

// IsAppendOnlyViolation reports whether err was raised by the trigger that
// guards ledger_entries against UPDATE and DELETE.
func IsAppendOnlyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeRaiseException
}

// WrapError runs a GORM operation and maps its error.
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(user).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}
