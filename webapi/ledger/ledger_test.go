package ledger_test

import (
	"net/http"
	"testing"

	"github.com/amirasaad/ledger/webapi/common"
	ledgerweb "github.com/amirasaad/ledger/webapi/ledger"
	"github.com/amirasaad/ledger/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjust(t *testing.T, h *testutils.MemoryHarness, token string, body any) *http.Response {
	t.Helper()
	return testutils.MakeRequest(t, h.Fiber, testutils.Request{
		Method: fiber.MethodPost,
		Path:   "/balance-adjustments",
		Body:   body,
		Token:  token,
	})
}

func adjustment(accountID uuid.UUID, delta, reason, key string) map[string]string {
	return map[string]string{
		"accountId":      accountID.String(),
		"delta":          delta,
		"reason":         reason,
		"idempotencyKey": key,
	}
}

func TestBalanceAdjustments_Scenario(t *testing.T) {
	h := testutils.NewMemoryHarness()
	admin := h.SeedUser(t, "0", true)
	customer := h.SeedUser(t, "0", false)

	resp := adjust(t, h, admin.Token, adjustment(customer.AccountID, "50.00", "top_up", "k1"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	first := testutils.DecodeBody[ledgerweb.AdjustmentResponse](t, resp)
	assert.Equal(t, "50.00", first.NewBalance.String())
	assert.NotEmpty(t, first.EntryID)

	resp = adjust(t, h, admin.Token, adjustment(customer.AccountID, "-30", "purchase", "k2"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "20.00", testutils.DecodeBody[ledgerweb.AdjustmentResponse](t, resp).NewBalance.String())

	resp = adjust(t, h, admin.Token, adjustment(customer.AccountID, "-25", "purchase", "k3"))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, common.MIMEProblemJSON, resp.Header.Get(fiber.HeaderContentType))
	problem := testutils.DecodeBody[common.ProblemDetails](t, resp)
	assert.Equal(t, common.KindInsufficientFunds, problem.Kind)

	resp = adjust(t, h, admin.Token, adjustment(customer.AccountID, "50.00", "top_up", "k1"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(common.HeaderIdempotentReplayed))
	replay := testutils.DecodeBody[ledgerweb.AdjustmentResponse](t, resp)
	assert.Equal(t, first, replay)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{
		Method: fiber.MethodGet,
		Path:   "/balance/" + customer.AccountID.String(),
		Token:  customer.Token,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "20.00", testutils.DecodeBody[ledgerweb.BalanceResponse](t, resp).Balance.String())

	assert.Len(t, h.Store.Entries(customer.AccountID), 2)
	assert.Len(t, h.Bus.Published(), 2)
}

func TestBalanceAdjustments_RequiresAdmin(t *testing.T) {
	h := testutils.NewMemoryHarness()
	customer := h.SeedUser(t, "10", false)

	resp := adjust(t, h, customer.Token, adjustment(customer.AccountID, "5", "top_up", "k1"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, h.Store.Entries(customer.AccountID))
}

func TestBalanceAdjustments_Errors(t *testing.T) {
	h := testutils.NewMemoryHarness()
	admin := h.SeedUser(t, "0", true)
	customer := h.SeedUser(t, "0", false)

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"unknown account", adjustment(uuid.New(), "5", "top_up", "k"), fiber.StatusNotFound, common.KindAccountNotFound},
		{"zero delta", adjustment(customer.AccountID, "0", "top_up", "k"), fiber.StatusBadRequest, common.KindValidation},
		{"three decimals", adjustment(customer.AccountID, "1.005", "top_up", "k"), fiber.StatusBadRequest, common.KindValidation},
		{"delta out of range", adjustment(customer.AccountID, "100000000000000000000.00", "top_up", "k"), fiber.StatusBadRequest, common.KindValidation},
		{"unknown reason", adjustment(customer.AccountID, "5", "gift", "k"), fiber.StatusBadRequest, common.KindValidation},
		{"missing key", adjustment(customer.AccountID, "5", "top_up", ""), fiber.StatusBadRequest, common.KindValidation},
		{"malformed json", `{"accountId":`, fiber.StatusBadRequest, common.KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := adjust(t, h, admin.Token, tc.body)
			require.Equal(t, tc.status, resp.StatusCode)
			problem := testutils.DecodeBody[common.ProblemDetails](t, resp)
			assert.Equal(t, tc.kind, problem.Kind)
		})
	}
	assert.Empty(t, h.Store.Entries(customer.AccountID))
}

func TestBalanceAdjustments_NumericDelta(t *testing.T) {
	h := testutils.NewMemoryHarness()
	admin := h.SeedUser(t, "0", true)
	customer := h.SeedUser(t, "0", false)

	resp := adjust(t, h, admin.Token, `{"accountId":"`+customer.AccountID.String()+`","delta":12.5,"reason":"admin_adjustment","idempotencyKey":"n1"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "12.50", testutils.DecodeBody[ledgerweb.AdjustmentResponse](t, resp).NewBalance.String())
}

func TestBalance_Authorization(t *testing.T) {
	h := testutils.NewMemoryHarness()
	admin := h.SeedUser(t, "0", true)
	owner := h.SeedUser(t, "7.25", false)
	stranger := h.SeedUser(t, "0", false)
	path := "/balance/" + owner.AccountID.String()

	resp := testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: path, Token: stranger.Token})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: path, Token: admin.Token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "7.25", testutils.DecodeBody[ledgerweb.BalanceResponse](t, resp).Balance.String())

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: path})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: path, Token: "not-a-jwt"})
	assert.Contains(t, []int{fiber.StatusBadRequest, fiber.StatusUnauthorized}, resp.StatusCode)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: "/balance/" + uuid.NewString(), Token: admin.Token})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, common.KindAccountNotFound, testutils.DecodeBody[common.ProblemDetails](t, resp).Kind)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: "/balance/nope", Token: admin.Token})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLedger_Pagination(t *testing.T) {
	h := testutils.NewMemoryHarness()
	admin := h.SeedUser(t, "0", true)
	customer := h.SeedUser(t, "0", false)
	for i, delta := range []string{"10", "-4", "6"} {
		reason := "top_up"
		if delta[0] == '-' {
			reason = "purchase"
		}
		resp := adjust(t, h, admin.Token, adjustment(customer.AccountID, delta, reason, "p"+string(rune('a'+i))))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	get := func(query string) ledgerweb.EntryPageResponse {
		resp := testutils.MakeRequest(t, h.Fiber, testutils.Request{
			Method: fiber.MethodGet,
			Path:   "/ledger/" + customer.AccountID.String() + query,
			Token:  customer.Token,
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		return testutils.DecodeBody[ledgerweb.EntryPageResponse](t, resp)
	}

	page := get("?limit=2")
	require.Len(t, page.Entries, 2)
	assert.Equal(t, int64(1), page.Entries[0].Sequence)
	assert.Equal(t, "10.00", page.Entries[0].BalanceAfter.String())
	assert.Equal(t, "-4.00", page.Entries[1].Delta.String())
	require.NotEmpty(t, page.NextCursor)

	page = get("?limit=2&cursor=" + page.NextCursor)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, int64(3), page.Entries[0].Sequence)
	assert.Equal(t, "12.00", page.Entries[0].BalanceAfter.String())
	assert.Empty(t, page.NextCursor)

	all := get("")
	assert.Len(t, all.Entries, 3)

	resp := testutils.MakeRequest(t, h.Fiber, testutils.Request{
		Method: fiber.MethodGet,
		Path:   "/ledger/" + customer.AccountID.String() + "?limit=0",
		Token:  customer.Token,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = testutils.MakeRequest(t, h.Fiber, testutils.Request{
		Method: fiber.MethodGet,
		Path:   "/ledger/" + customer.AccountID.String() + "?cursor=abc",
		Token:  customer.Token,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAccount_GetAndTopUp(t *testing.T) {
	h := testutils.NewMemoryHarness()
	customer := h.SeedUser(t, "1.50", false)

	resp := testutils.MakeRequest(t, h.Fiber, testutils.Request{Method: fiber.MethodGet, Path: "/account", Token: customer.Token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	acct := testutils.DecodeBody[testutils.Envelope[ledgerweb.AccountResponse]](t, resp)
	assert.Equal(t, customer.AccountID, acct.Data.ID)
	assert.Equal(t, "1.50", acct.Data.Balance.String())

	topUp := func(key string, amount string) *http.Response {
		req := testutils.Request{
			Method: fiber.MethodPost,
			Path:   "/account/top-up",
			Body:   map[string]string{"amount": amount},
			Token:  customer.Token,
		}
		if key != "" {
			req.Headers = map[string]string{common.HeaderIdempotencyKey: key}
		}
		return testutils.MakeRequest(t, h.Fiber, req)
	}

	resp = topUp("t1", "8.50")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	entry := testutils.DecodeBody[testutils.Envelope[ledgerweb.EntryResponse]](t, resp)
	assert.Equal(t, "10.00", entry.Data.BalanceAfter.String())
	assert.Equal(t, "top_up", entry.Data.Reason)

	resp = topUp("t1", "8.50")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(common.HeaderIdempotentReplayed))

	assert.Equal(t, fiber.StatusBadRequest, topUp("", "1").StatusCode)
	assert.Equal(t, fiber.StatusBadRequest, topUp("t2", "-1").StatusCode)

	got, _ := h.Store.Account(customer.AccountID)
	assert.Equal(t, "10.00", got.Balance.StringFixed(2))
}

func TestAccount_TopUpDistinctKeys(t *testing.T) {
	h := testutils.NewMemoryHarness()
	customer := h.SeedUser(t, "0", false)

	for _, key := range []string{"k1", "k2"} {
		resp := testutils.MakeRequest(t, h.Fiber, testutils.Request{
			Method:  fiber.MethodPost,
			Path:    "/account/top-up",
			Body:    map[string]string{"amount": "10.00"},
			Token:   customer.Token,
			Headers: map[string]string{common.HeaderIdempotencyKey: key},
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, key)
		assert.Empty(t, resp.Header.Get(common.HeaderIdempotentReplayed), key)
	}

	got, _ := h.Store.Account(customer.AccountID)
	assert.Equal(t, "20.00", got.Balance.StringFixed(2))

	entries := h.Store.Entries(customer.AccountID)
	require.Len(t, entries, 2)
	assert.Equal(t, "k1", entries[0].IdempotencyKey)
	assert.Equal(t, "k2", entries[1].IdempotencyKey)
}
