package purchase

import (
	"context"

	"github.com/amirasaad/ledger/infra/repository/gormerr"
	domain "github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/amirasaad/ledger/pkg/dto"
	repo "github.com/amirasaad/ledger/pkg/repository/purchase"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New creates a GORM backed purchase repository.
func New(db *gorm.DB) repo.Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, create dto.PurchaseCreate) error {
	p := Purchase{
		ID:            create.ID,
		UserID:        create.UserID,
		AccountID:     create.AccountID,
		EntryID:       create.EntryID,
		Items:         Items(create.Items),
		PaymentMethod: create.PaymentMethod,
		TotalAmount:   create.TotalAmount,
		CreatedAt:     create.CreatedAt,
	}
	return gormerr.WrapError(func() error {
		return r.db.WithContext(ctx).Create(&p).Error
	})
}

func (r *repository) GetByEntry(ctx context.Context, entryID string) (*dto.PurchaseRead, error) {
	var p Purchase
	if err := r.db.WithContext(ctx).Where("entry_id = ?", entryID).Take(&p).Error; err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	return mapModelToDTO(&p), nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*dto.PurchaseRead, error) {
	var purchases []Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, gormerr.MapGormErrorToDomain(err)
	}
	result := make([]*dto.PurchaseRead, 0, len(purchases))
	for i := range purchases {
		result = append(result, mapModelToDTO(&purchases[i]))
	}
	return result, nil
}

func mapModelToDTO(p *Purchase) *dto.PurchaseRead {
	return &dto.PurchaseRead{
		ID:            p.ID,
		UserID:        p.UserID,
		AccountID:     p.AccountID,
		EntryID:       p.EntryID,
		Items:         []domain.Item(p.Items),
		PaymentMethod: p.PaymentMethod,
		TotalAmount:   p.TotalAmount,
		CreatedAt:     p.CreatedAt,
	}
}
