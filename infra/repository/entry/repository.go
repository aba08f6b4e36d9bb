package entry

import (
	"context"

	"github.com/amirasaad/ledger/infra/repository/gormerr"
	"github.com/amirasaad/ledger/pkg/dto"
	repo "github.com/amirasaad/ledger/pkg/repository/entry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates a GORM backed ledger entry repository.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

// Create implements entry.Repository.
func (r *repository) Create(ctx context.Context, create dto.EntryCreate) error {
	e := Entry{
		ID:             create.ID,
		AccountID:      create.AccountID,
		Sequence:       create.Sequence,
		Delta:          create.Delta,
		BalanceAfter:   create.BalanceAfter,
		Reason:         create.Reason,
		IdempotencyKey: create.IdempotencyKey,
		CreatedAt:      create.CreatedAt,
	}
	return gormerr.WrapError(func() error {
		return r.db.WithContext(ctx).Create(&e).Error
	})
}

// GetByIdempotencyKey implements entry.Repository.
func (r *repository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*dto.EntryRead, error) {
	var e Entry
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ?", accountID, key).
		Take(&e).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	return mapModelToDTO(&e), nil
}

// ListByAccount implements entry.Repository.
func (r *repository) ListByAccount(
	ctx context.Context,
	accountID uuid.UUID,
	afterSequence int64,
	limit int,
) ([]*dto.EntryRead, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND sequence > ?", accountID, afterSequence).
		Order("sequence ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	result := make([]*dto.EntryRead, 0, len(entries))
	for i := range entries {
		result = append(result, mapModelToDTO(&entries[i]))
	}
	return result, nil
}

// Totals implements entry.Repository.
func (r *repository) Totals(ctx context.Context, accountID uuid.UUID) (*dto.EntryTotals, error) {
	db := r.db.WithContext(ctx)

	var row totalsRow
	err := db.Model(&Entry{}).
		Select("COUNT(*) AS count, COALESCE(SUM(delta), 0) AS sum").
		Where("account_id = ?", accountID).
		Scan(&row).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}

	totals := &dto.EntryTotals{Count: row.Count, Sum: row.Sum, LastBalance: decimal.Zero}
	if row.Count == 0 {
		return totals, nil
	}

	var last Entry
	err = db.Where("account_id = ?", accountID).
		Order("sequence DESC").
		Take(&last).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	totals.LastSequence = last.Sequence
	totals.LastBalance = last.BalanceAfter
	return totals, nil
}

func mapModelToDTO(e *Entry) *dto.EntryRead {
	return &dto.EntryRead{
		ID:             e.ID,
		AccountID:      e.AccountID,
		Sequence:       e.Sequence,
		Delta:          e.Delta,
		BalanceAfter:   e.BalanceAfter,
		Reason:         e.Reason,
		IdempotencyKey: e.IdempotencyKey,
		CreatedAt:      e.CreatedAt,
	}
}
