package account

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/ledger/infra/repository/gormerr"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/dto"
	repo "github.com/amirasaad/ledger/pkg/repository/account"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates a GORM backed account repository.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Create implements account.Repository.
func (r *repository) Create(ctx context.Context, create dto.AccountCreate) error {
	now := time.Now().UTC()
	acct := Account{
		ID:        create.ID,
		UserID:    create.UserID,
		Balance:   decimal.Zero,
		IsAdmin:   create.IsAdmin,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return gormerr.WrapError(func() error {
		return r.db.WithContext(ctx).Create(&acct).Error
	})
}

// Get implements account.Repository.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*dto.AccountRead, error) {
	var acct Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&acct).Error; err != nil {
		return nil, notFound(err)
	}
	return mapModelToDTO(&acct), nil
}

// GetByUser implements account.Repository.
func (r *repository) GetByUser(ctx context.Context, userID uuid.UUID) (*dto.AccountRead, error) {
	var acct Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&acct).Error; err != nil {
		return nil, notFound(err)
	}
	return mapModelToDTO(&acct), nil
}

// ApplyDelta implements account.Repository. The version and funds checks
// live in the WHERE clause so the statement is a single compare-and-swap.
func (r *repository) ApplyDelta(
	ctx context.Context,
	id uuid.UUID,
	delta decimal.Decimal,
	expectedVersion int64,
) (*dto.BalanceChange, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&Account{}).
		Where("id = ? AND version = ? AND balance + ? >= 0", id, expectedVersion, delta).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, gormerr.MapGormErrorToDomain(res.Error)
	}

	var acct Account
	if err := db.Where("id = ?", id).Take(&acct).Error; err != nil {
		return nil, notFound(err)
	}

	if res.RowsAffected == 0 {
		if acct.Version != expectedVersion {
			return nil, ledger.ErrVersionConflict
		}
		return nil, ledger.ErrInsufficientFunds
	}
	return &dto.BalanceChange{Balance: acct.Balance, Version: acct.Version}, nil
}

// ListWithOwners implements account.Repository.
func (r *repository) ListWithOwners(ctx context.Context, page, pageSize int) ([]*dto.AccountOwner, error) {
	if page < 1 {
		page = 1
	}
	var rows []ownerRow
	err := r.db.WithContext(ctx).
		Table("accounts").
		Select("accounts.id AS account_id, accounts.user_id, users.username, users.email, accounts.balance, accounts.is_admin").
		Joins("JOIN users ON users.id = accounts.user_id").
		Order("users.email ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	result := make([]*dto.AccountOwner, 0, len(rows))
	for _, row := range rows {
		result = append(result, &dto.AccountOwner{
			AccountID: row.AccountID,
			UserID:    row.UserID,
			Username:  row.Username,
			Email:     row.Email,
			Balance:   row.Balance,
			IsAdmin:   row.IsAdmin,
		})
	}
	return result, nil
}

// SetAdmin implements account.Repository.
func (r *repository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	res := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_admin": isAdmin, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return gormerr.MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func notFound(err error) error {
	mapped := gormerr.MapGormErrorToDomain(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return ledger.ErrAccountNotFound
	}
	return mapped
}

func mapModelToDTO(acct *Account) *dto.AccountRead {
	return &dto.AccountRead{
		ID:        acct.ID,
		UserID:    acct.UserID,
		Balance:   acct.Balance,
		IsAdmin:   acct.IsAdmin,
		Version:   acct.Version,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}
