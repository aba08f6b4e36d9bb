package user_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/amirasaad/ledger/internal/fixtures"
	"github.com/amirasaad/ledger/pkg/domain"
	domainuser "github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/amirasaad/ledger/pkg/dto"
	usersvc "github.com/amirasaad/ledger/pkg/service/user"
	"github.com/amirasaad/ledger/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type stubTokens struct {
	err error
}

func (s stubTokens) GenerateToken(_ context.Context, u *dto.UserRead, acct *dto.AccountRead) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + u.Username + "-" + acct.ID.String(), nil
}

func TestRegister_CreatesUserAndAccount(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	svc := usersvc.New(store, stubTokens{}, slog.Default())

	reg, err := svc.Register(context.Background(), "alice", "Alice@Example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.True(t, utils.CheckPasswordHash("password", reg.User.HashedPassword))
	assert.Equal(t, reg.User.ID, reg.Account.UserID)
	assert.True(t, reg.Account.Balance.IsZero())
	assert.Equal(t, int64(0), reg.Account.Version)
	assert.False(t, reg.Account.IsAdmin)
	assert.Equal(t, "token-alice-"+reg.Account.ID.String(), reg.Token)
}

func TestRegister_Duplicates(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	svc := usersvc.New(store, stubTokens{}, slog.Default())
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = svc.Register(context.Background(), "bob", "ALICE@example.com", "password")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	svc := usersvc.New(fixtures.NewMemoryUoW(), stubTokens{}, slog.Default())

	tests := []struct {
		name                      string
		username, email, password string
		want                      error
	}{
		{"short username", "al", "al@example.com", "password", domainuser.ErrInvalidUsername},
		{"bad email", "alice", "not-an-email", "password", domainuser.ErrInvalidEmail},
		{"short password", "alice", "alice@example.com", "123", domainuser.ErrPasswordTooShort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegister_TokenFailure(t *testing.T) {
	t.Parallel()
	tokenErr := errors.New("signing failed")
	svc := usersvc.New(fixtures.NewMemoryUoW(), stubTokens{err: tokenErr}, slog.Default())
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password")
	assert.ErrorIs(t, err, tokenErr)
}

func TestCreateAdmin(t *testing.T) {
	t.Parallel()
	store := fixtures.NewMemoryUoW()
	svc := usersvc.New(store, nil, slog.Default())

	reg, err := svc.CreateAdmin(context.Background(), "root", "root@example.com", "password")
	require.NoError(t, err)
	assert.True(t, reg.Account.IsAdmin)
	assert.Empty(t, reg.Token)

	got, err := svc.GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, got.ID)

	got, err = svc.GetUser(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "root", got.Username)
}
