// Package auth issues and reads the signed tokens that identify a user and
// their account on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/repository/account"
	repouser "github.com/amirasaad/ledger/pkg/repository/user"
	"github.com/amirasaad/ledger/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity carried by a token.
type Claims struct {
	UserID    uuid.UUID
	Username  string
	Email     string
	AccountID uuid.UUID
	IsAdmin   bool
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User    *dto.UserRead
	Account *dto.AccountRead
	Token   string
}

// Service authenticates users and signs HS256 tokens.
type Service struct {
	uow    repository.UnitOfWork
	cfg    *config.Jwt
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Service.
func New(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, cfg: cfg, now: time.Now, logger: logger}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummy spends the same bcrypt work as a real comparison so unknown
// identities take as long as wrong passwords.
func compareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword(uuid.NewString())
	})
	_ = utils.CheckPasswordHash(password, dummyHash)
}

// Login checks the credentials for an email or username and returns a fresh
// token.
func (s *Service) Login(
	ctx context.Context,
	identity, password string,
) (*LoginResult, error) {
	log := s.logger.With("context", "Login", "identity", identity)
	log.Debug("Login called")

	var (
		u    *dto.UserRead
		acct *dto.AccountRead
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := repository.Get[repouser.Repository](uow)
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		if utils.IsEmail(identity) {
			u, err = users.GetByEmail(ctx, identity)
		} else {
			u, err = users.GetByUsername(ctx, identity)
		}
		if errors.Is(err, user.ErrUserNotFound) {
			compareDummy(password)
			return user.ErrUserUnauthorized
		}
		if err != nil {
			return err
		}
		if !utils.CheckPasswordHash(password, u.HashedPassword) {
			return user.ErrUserUnauthorized
		}

		accounts, err := repository.Get[account.Repository](uow)
		if err != nil {
			return fmt.Errorf("failed to get account repository: %w", err)
		}
		acct, err = accounts.GetByUser(ctx, u.ID)
		return err
	})
	if err != nil {
		log.Warn("Login failed", "error", err)
		return nil, err
	}

	token, err := s.GenerateToken(ctx, u, acct)
	if err != nil {
		return nil, err
	}
	log.Info("Login successful", "user_id", u.ID)
	return &LoginResult{User: u, Account: acct, Token: token}, nil
}

// GenerateToken signs a token for u and their account.
func (s *Service) GenerateToken(
	_ context.Context,
	u *dto.UserRead,
	acct *dto.AccountRead,
) (string, error) {
	if acct == nil {
		return "", ledger.ErrAccountNotFound
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    u.ID.String(),
		"username":   u.Username,
		"email":      u.Email,
		"account_id": acct.ID.String(),
		"is_admin":   acct.IsAdmin,
		"exp":        s.now().Add(s.cfg.Expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Error("GenerateToken failed", "user_id", u.ID, "error", err)
		return "", err
	}
	return signed, nil
}

// ParseToken verifies a signed token with the configured secret.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", user.ErrUserUnauthorized, err)
	}
	return ClaimsFromToken(token)
}

// ClaimsFromToken reads the identity from a verified token.
func ClaimsFromToken(token *jwt.Token) (*Claims, error) {
	if token == nil {
		return nil, user.ErrUserUnauthorized
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, user.ErrUserUnauthorized
	}
	userID, err := uuidClaim(mc, "user_id")
	if err != nil {
		return nil, err
	}
	accountID, err := uuidClaim(mc, "account_id")
	if err != nil {
		return nil, err
	}
	c := &Claims{UserID: userID, AccountID: accountID}
	c.Username, _ = mc["username"].(string)
	c.Email, _ = mc["email"].(string)
	c.IsAdmin, _ = mc["is_admin"].(bool)
	return c, nil
}

func uuidClaim(mc jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := mc[key].(string)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	return id, nil
}
