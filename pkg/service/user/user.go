// Package user registers storefront users. Every user owns exactly one
// ledger account created in the same transaction.
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	userrepo "github.com/amirasaad/ledger/pkg/repository/user"
	"github.com/google/uuid"
)

// TokenIssuer signs the token handed back at registration.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, u *dto.UserRead, acct *dto.AccountRead) (string, error)
}

// Registration is the result of Register.
type Registration struct {
	User    *dto.UserRead
	Account *dto.AccountRead
	Token   string
}

// Service provides user registration and lookup.
type Service struct {
	uow    repository.UnitOfWork
	tokens TokenIssuer
	logger *slog.Logger
}

// New creates a new Service. tokens may be nil when no token is needed, as
// in the admin CLI.
func New(
	uow repository.UnitOfWork,
	tokens TokenIssuer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, tokens: tokens, logger: logger}
}

// Register creates the user and a zero balance account atomically and
// returns a token for the new identity.
func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
) (*Registration, error) {
	reg, err := s.create(ctx, username, email, password, false)
	if err != nil {
		return nil, err
	}
	if s.tokens != nil {
		reg.Token, err = s.tokens.GenerateToken(ctx, reg.User, reg.Account)
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// CreateAdmin registers a user whose account carries the admin flag.
func (s *Service) CreateAdmin(
	ctx context.Context,
	username, email, password string,
) (*Registration, error) {
	return s.create(ctx, username, email, password, true)
}

func (s *Service) create(
	ctx context.Context,
	username, email, password string,
	isAdmin bool,
) (reg *Registration, err error) {
	log := s.logger.With("context", "Register", "username", username)

	u, err := user.NewUser(username, email, password)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := repository.Get[userrepo.Repository](uow)
		if err != nil {
			return err
		}
		accounts, err := repository.Get[account.Repository](uow)
		if err != nil {
			return err
		}

		if taken, err := users.ExistsByUsername(ctx, u.Username); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("username %q: %w", u.Username, domain.ErrAlreadyExists)
		}
		if taken, err := users.ExistsByEmail(ctx, u.Email); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("email %q: %w", u.Email, domain.ErrAlreadyExists)
		}

		if err := users.Create(ctx, &dto.UserCreate{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
		}); err != nil {
			return err
		}
		if err := accounts.Create(ctx, dto.AccountCreate{
			ID:      uuid.New(),
			UserID:  u.ID,
			IsAdmin: isAdmin,
		}); err != nil {
			return err
		}

		created, err := users.Get(ctx, u.ID)
		if err != nil {
			return err
		}
		acct, err := accounts.GetByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		reg = &Registration{User: created, Account: acct}
		return nil
	})
	if err != nil {
		log.Warn("Registration failed", "error", err)
		return nil, err
	}
	log.Info("User registered", "user_id", reg.User.ID, "account_id", reg.Account.ID, "is_admin", isAdmin)
	return reg, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(
	ctx context.Context,
	userID uuid.UUID,
) (*dto.UserRead, error) {
	users, err := repository.Get[userrepo.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	return users.Get(ctx, userID)
}

// GetUserByEmail retrieves a user by email.
func (s *Service) GetUserByEmail(
	ctx context.Context,
	email string,
) (*dto.UserRead, error) {
	users, err := repository.Get[userrepo.Repository](s.uow)
	if err != nil {
		return nil, err
	}
	return users.GetByEmail(ctx, email)
}
