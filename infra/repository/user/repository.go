package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/ledger/infra/repository/gormerr"
	"github.com/amirasaad/ledger/pkg/domain"
	domainuser "github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) user.Repository {
	return &repository{db: db}
}

func (r *repository) Create(
	ctx context.Context,
	create *dto.UserCreate,
) error {
	now := time.Now().UTC()
	u := &User{
		ID:        create.ID,
		Username:  create.Username,
		Email:     strings.ToLower(create.Email),
		Password:  create.Password,
		Names:     create.Names,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return gormerr.WrapError(func() error {
		return r.db.WithContext(ctx).Create(u).Error
	})
}

func (r *repository) Update(
	ctx context.Context,
	id uuid.UUID,
	uu *dto.UserUpdate,
) error {
	updates := make(map[string]any)
	if uu.Names != nil {
		updates["names"] = *uu.Names
	}
	if uu.Password != nil {
		updates["password"] = *uu.Password
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	return gormerr.WrapError(func() error {
		return r.db.WithContext(ctx).Model(&User{}).
			Where("id = ?", id).
			Updates(updates).Error
	})
}

func (r *repository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*dto.UserRead, error) {
	return r.takeWhere(ctx, "id = ?", id)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*dto.UserRead, error) {
	return r.takeWhere(ctx, "email = ?", strings.ToLower(email))
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*dto.UserRead, error) {
	return r.takeWhere(ctx, "username = ?", username)
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	return r.exists(ctx, "email = ?", strings.ToLower(email))
}

func (r *repository) ExistsByUsername(
	ctx context.Context,
	username string,
) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *repository) takeWhere(ctx context.Context, query string, arg any) (*dto.UserRead, error) {
	var u User
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&u).Error; err != nil {
		mapped := gormerr.MapGormErrorToDomain(err)
		if errors.Is(mapped, domain.ErrNotFound) {
			return nil, domainuser.ErrUserNotFound
		}
		return nil, mapped
	}
	return mapModelToDTO(&u), nil
}

func (r *repository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where(query, arg).Count(&count).Error
	if err != nil {
		return false, gormerr.MapGormErrorToDomain(err)
	}
	return count > 0, nil
}

func mapModelToDTO(u *User) *dto.UserRead {
	return &dto.UserRead{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		HashedPassword: u.Password,
		Names:          u.Names,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
