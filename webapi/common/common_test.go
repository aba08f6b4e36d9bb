package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/domain/purchase"
	"github.com/amirasaad/ledger/pkg/domain/user"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{ledger.ErrInsufficientFunds, fiber.StatusUnprocessableEntity, KindInsufficientFunds},
		{fmt.Errorf("submit: %w", ledger.ErrAccountNotFound), fiber.StatusNotFound, KindAccountNotFound},
		{ledger.ErrContention, fiber.StatusConflict, KindContention},
		{domain.ErrAlreadyExists, fiber.StatusConflict, KindConflict},
		{domain.ErrNotFound, fiber.StatusNotFound, KindNotFound},
		{user.ErrUserNotFound, fiber.StatusNotFound, KindNotFound},
		{user.ErrUserUnauthorized, fiber.StatusUnauthorized, KindUnauthorized},
		{domain.ErrForbidden, fiber.StatusForbidden, KindForbidden},
		{ledger.ErrInvalidAmount, fiber.StatusBadRequest, KindValidation},
		{ledger.ErrIdempotencyKeyRequired, fiber.StatusBadRequest, KindValidation},
		{purchase.ErrTotalMismatch, fiber.StatusBadRequest, KindValidation},
		{context.DeadlineExceeded, fiber.StatusGatewayTimeout, KindInternal},
		{fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed, ""},
		{errors.New("boom"), fiber.StatusInternalServerError, KindInternal},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, ErrorToStatusCode(tc.err))
			assert.Equal(t, tc.kind, ErrorKind(tc.err))
		})
	}
}

func runProblem(t *testing.T, err error, args ...any) (*ProblemDetails, map[string]string, int) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ProblemDetailsJSON(c, "Failed", err, args...)
	})
	resp, rerr := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, rerr)
	defer resp.Body.Close() //nolint:errcheck

	var pd ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	headers := map[string]string{
		fiber.HeaderContentType: resp.Header.Get(fiber.HeaderContentType),
		fiber.HeaderRetryAfter:  resp.Header.Get(fiber.HeaderRetryAfter),
	}
	return &pd, headers, resp.StatusCode
}

func TestProblemDetailsJSON(t *testing.T) {
	pd, headers, status := runProblem(t, ledger.ErrInsufficientFunds)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, MIMEProblemJSON, headers[fiber.HeaderContentType])
	assert.Equal(t, KindInsufficientFunds, pd.Kind)
	assert.Equal(t, ledger.ErrInsufficientFunds.Error(), pd.Detail)
	assert.Equal(t, "/", pd.Instance)
	assert.Empty(t, headers[fiber.HeaderRetryAfter])

	pd, headers, status = runProblem(t, ledger.ErrContention)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, KindContention, pd.Kind)
	assert.Equal(t, "1", headers[fiber.HeaderRetryAfter])

	pd, _, status = runProblem(t, errors.New("database password leaked"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, pd.Detail)

	pd, _, status = runProblem(t, errors.New("slow down"), "custom detail", fiber.StatusTooManyRequests)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "custom detail", pd.Detail)
	assert.Equal(t, fiber.StatusTooManyRequests, pd.Status)
}

type bindInput struct {
	Name   string `json:"name" validate:"required"`
	Amount Amount `json:"amount"`
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		input, err := BindAndValidate[bindInput](c)
		if input == nil {
			return err
		}
		return c.SendString(input.Name + " " + input.Amount.String())
	})

	post := func(body string) (int, string) {
		req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	status, body := post(`{"name":"ok","amount":"3.1"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok 3.10", body)

	status, body = post(`{"amount":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, `"field":"Name"`)
	assert.Contains(t, body, `"kind":"Validation"`)

	status, _ = post(`{"name":"x","amount":"1.001"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = post(`{"name":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAmount(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"20"`), &a))
	assert.Equal(t, "20.00", a.String())

	require.NoError(t, json.Unmarshal([]byte(`-0.5`), &a))
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("-0.5")))

	out, err := json.Marshal(NewAmount(decimal.RequireFromString("7.5")))
	require.NoError(t, err)
	assert.JSONEq(t, `"7.50"`, string(out))

	assert.ErrorIs(t, json.Unmarshal([]byte(`"1.234"`), &a), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"abc"`), &a), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"100000000000000000000.00"`), &a), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1e20`), &a), ledger.ErrInvalidAmount)
	require.NoError(t, json.Unmarshal([]byte(`"999999999999999999.99"`), &a))
	assert.True(t, a.Decimal().Equal(ledger.MaxAmount))
}
