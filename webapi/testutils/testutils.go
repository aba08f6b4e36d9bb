// Package testutils builds fully wired Fiber apps for handler and
// end-to-end tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/ledger/infra"
	infraeventbus "github.com/amirasaad/ledger/infra/eventbus"
	infrarepo "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/internal/fixtures"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/utils"
	"github.com/amirasaad/ledger/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the password of every user created by the helpers.
const TestPassword = "password123"

// NewTestConfig returns a complete configuration suitable for tests.
func NewTestConfig() *config.App {
	return &config.App{
		Env: "test",
		Server: &config.Server{
			Scheme:         "http",
			Host:           "localhost",
			Port:           3000,
			ReadTimeout:    10 * time.Second,
			AllowedOrigins: "*",
		},
		Log:  &config.Log{Format: "text"},
		DB:   &config.DB{},
		Auth: &config.Auth{Jwt: &config.Jwt{Secret: "test-secret", Expiry: time.Hour}},
		EventBus: &config.EventBus{
			Driver: "memory",
		},
		Lock: &config.Lock{},
		Ledger: &config.Ledger{
			MaxAttempts:     5,
			DefaultPageSize: 50,
			MaxPageSize:     200,
		},
		RateLimit: &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
	}
}

// Harness is a wired application over an arbitrary unit of work.
type Harness struct {
	Uow    repository.UnitOfWork
	Bus    *infraeventbus.MemoryEventBus
	App    *app.App
	Fiber  *fiber.App
	Config *config.App
}

// NewHarness wires the services and routes over uow with a memory bus.
func NewHarness(uow repository.UnitOfWork, cfg *config.App) *Harness {
	utils.HashCost = bcrypt.MinCost
	if cfg == nil {
		cfg = NewTestConfig()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := infraeventbus.NewWithMemory(logger)
	a := app.New(&app.Deps{Uow: uow, EventBus: bus, Logger: logger}, cfg)
	return &Harness{
		Uow:    uow,
		Bus:    bus,
		App:    a,
		Fiber:  webapi.SetupApp(a),
		Config: cfg,
	}
}

// MemoryHarness is a Harness over the in-memory store.
type MemoryHarness struct {
	*Harness
	Store *fixtures.MemoryUoW
}

// NewMemoryHarness wires the application over a fresh in-memory store.
func NewMemoryHarness() *MemoryHarness {
	store := fixtures.NewMemoryUoW()
	return &MemoryHarness{Harness: NewHarness(store, nil), Store: store}
}

// TestUser is a seeded user with a valid token.
type TestUser struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Username  string
	Email     string
	Token     string
}

// SeedUser stores a user and an account holding balance, bypassing the
// ledger, and signs a token for them.
func (h *MemoryHarness) SeedUser(tb testing.TB, balance string, isAdmin bool) TestUser {
	tb.Helper()
	hash, err := utils.HashPassword(TestPassword)
	require.NoError(tb, err)

	suffix := uuid.NewString()[:8]
	u := dto.UserRead{
		ID:             uuid.New(),
		Username:       "user_" + suffix,
		Email:          "user_" + suffix + "@example.com",
		HashedPassword: hash,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	h.Store.SeedUser(u)
	accountID := h.Store.SeedAccount(u.ID, decimal.RequireFromString(balance), isAdmin)
	acct, _ := h.Store.Account(accountID)

	token, err := h.App.AuthService.GenerateToken(context.Background(), &u, &acct)
	require.NoError(tb, err)
	return TestUser{
		UserID:    u.ID,
		AccountID: accountID,
		Username:  u.Username,
		Email:     u.Email,
		Token:     token,
	}
}

// Request describes one call made through MakeRequest.
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Headers map[string]string
}

// MakeRequest runs req against app. A string body is sent as is and any
// other value is encoded as JSON.
func MakeRequest(tb testing.TB, app *fiber.App, req Request) *http.Response {
	tb.Helper()
	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(tb, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.Method, req.Path, body)
	if body != nil {
		r.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if req.Token != "" {
		r.Header.Set(fiber.HeaderAuthorization, "Bearer "+req.Token)
	}
	for k, v := range req.Headers {
		r.Header.Set(k, v)
	}

	resp, err := app.Test(r, -1)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeBody reads a JSON response into T.
func DecodeBody[T any](tb testing.TB, resp *http.Response) T {
	tb.Helper()
	var out T
	require.NoError(tb, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Envelope is the decoded form of common.Response with a typed payload.
type Envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// E2ETestSuite runs the HTTP surface against a real Postgres started with
// Testcontainers. It is skipped when no container provider is available.
type E2ETestSuite struct {
	suite.Suite
	pgContainer *tcpostgres.PostgresContainer
	DB          *gorm.DB
	Harness     *Harness
}

// SetupSuite starts Postgres, applies the migrations and wires the app.
func (s *E2ETestSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping end-to-end suite in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(s.T())

	ctx := context.Background()
	container, err := tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.pgContainer = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	cfg := NewTestConfig()
	cfg.DB = &config.DB{Url: dsn, MaxOpenConn: 20, MaxIdleConn: 5}
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	s.Require().NoError(err)
	s.Require().NoError(infra.Migrate(db))
	s.DB = db

	s.Harness = NewHarness(infrarepo.NewUoW(db), cfg)
}

// TearDownSuite stops the container.
func (s *E2ETestSuite) TearDownSuite() {
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

// MakeRequest runs req against the suite's app.
func (s *E2ETestSuite) MakeRequest(req Request) *http.Response {
	return MakeRequest(s.T(), s.Harness.Fiber, req)
}

// RegisterUser registers a fresh user over HTTP and returns its identity.
func (s *E2ETestSuite) RegisterUser() TestUser {
	suffix := uuid.NewString()[:8]
	username := fmt.Sprintf("e2e_%s", suffix)
	email := fmt.Sprintf("e2e_%s@example.com", suffix)

	resp := s.MakeRequest(Request{
		Method: fiber.MethodPost,
		Path:   "/user",
		Body: map[string]string{
			"username": username,
			"email":    email,
			"password": TestPassword,
		},
	})
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	body := DecodeBody[Envelope[struct {
		User struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
		AccountID uuid.UUID `json:"accountId"`
		Token     string    `json:"token"`
	}]](s.T(), resp)

	return TestUser{
		UserID:    body.Data.User.ID,
		AccountID: body.Data.AccountID,
		Username:  username,
		Email:     email,
		Token:     body.Data.Token,
	}
}

// PromoteAdmin flips the admin flag of an account and returns a fresh token
// carrying it.
func (s *E2ETestSuite) PromoteAdmin(u TestUser) TestUser {
	ctx := context.Background()
	acct, err := s.Harness.App.AdminService.GrantAdmin(ctx, u.Email, true)
	s.Require().NoError(err)
	usr, err := s.Harness.App.UserService.GetUser(ctx, u.UserID)
	s.Require().NoError(err)
	u.Token, err = s.Harness.App.AuthService.GenerateToken(ctx, usr, acct)
	s.Require().NoError(err)
	return u
}
