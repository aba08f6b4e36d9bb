// Package ledger exposes the balance ledger over HTTP: adjustments, balance
// reads, entry pagination and self service top-ups.
package ledger

import (
	"strconv"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain"
	domainledger "github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/middleware"
	"github.com/amirasaad/ledger/pkg/service/admin"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/amirasaad/ledger/pkg/service/topup"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// Routes registers the ledger endpoints.
func Routes(
	app *fiber.App,
	ledgerSvc *ledgersvc.Service,
	topUpSvc *topup.Service,
	adminSvc *admin.Service,
	cfg *config.Jwt,
) {
	protected := middleware.JwtProtected(cfg)
	app.Get("/account", protected, GetAccount(ledgerSvc))
	app.Post("/account/top-up", protected, TopUp(topUpSvc))
	app.Post("/balance-adjustments", protected, SubmitAdjustment(ledgerSvc, adminSvc))
	app.Get("/balance/:accountId", protected, GetBalance(ledgerSvc, adminSvc))
	app.Get("/ledger/:accountId", protected, ListEntries(ledgerSvc, adminSvc))
}

// SubmitAdjustment applies one signed balance mutation.
// @Summary Submit a balance adjustment
// @Description Apply a signed delta to an account. Resubmitting the same idempotency key replays the original result.
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body AdjustmentRequest true "Adjustment"
// @Success 201 {object} AdjustmentResponse
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /balance-adjustments [post]
// @Security Bearer
func SubmitAdjustment(ledgerSvc *ledgersvc.Service, adminSvc *admin.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		if err := adminSvc.Authorize(c.Context(), claims.UserID); err != nil {
			return common.ProblemDetailsJSON(c, "Forbidden", err)
		}
		input, err := common.BindAndValidate[AdjustmentRequest](c)
		if input == nil {
			return err
		}
		accountID, err := uuid.Parse(input.AccountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", domainledger.ErrAccountNotFound)
		}
		res, err := ledgerSvc.Submit(c.Context(), ledgersvc.SubmitRequest{
			AccountID:      accountID,
			Delta:          input.Delta.Decimal(),
			Reason:         domainledger.Reason(input.Reason),
			IdempotencyKey: input.IdempotencyKey,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Adjustment rejected", err)
		}
		common.MarkReplayed(c, res.Replayed)
		return c.Status(fiber.StatusCreated).JSON(AdjustmentResponse{
			EntryID:    res.Entry.ID,
			NewBalance: common.NewAmount(res.Entry.BalanceAfter),
		})
	}
}

// GetBalance returns the current balance of an account.
// @Summary Get account balance
// @Tags ledger
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} BalanceResponse
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /balance/{accountId} [get]
// @Security Bearer
func GetBalance(ledgerSvc *ledgersvc.Service, adminSvc *admin.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID, ok, err := authorizeAccount(c, adminSvc)
		if !ok {
			return err
		}
		balance, err := ledgerSvc.GetBalance(c.Context(), accountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get balance", err)
		}
		return c.JSON(BalanceResponse{Balance: common.NewAmount(balance)})
	}
}

// ListEntries pages through an account's ledger in sequence order.
// @Summary List ledger entries
// @Tags ledger
// @Produce json
// @Param accountId path string true "Account ID"
// @Param cursor query string false "Cursor returned by the previous page"
// @Param limit query int false "Page size (default 50, max 200)"
// @Success 200 {object} EntryPageResponse
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /ledger/{accountId} [get]
// @Security Bearer
func ListEntries(ledgerSvc *ledgersvc.Service, adminSvc *admin.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID, ok, err := authorizeAccount(c, adminSvc)
		if !ok {
			return err
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				return common.ProblemDetailsJSON(c, "Invalid limit", domain.ErrValidation, "limit must be a positive integer")
			}
		}
		page, err := ledgerSvc.ListEntries(c.Context(), accountID, c.Query("cursor"), limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list entries", err)
		}
		body := EntryPageResponse{Entries: make([]EntryResponse, 0, len(page.Entries)), NextCursor: page.NextCursor}
		for _, e := range page.Entries {
			body.Entries = append(body.Entries, toEntryResponse(e))
		}
		return c.JSON(body)
	}
}

// GetAccount returns the caller's account.
// @Summary Get my account
// @Tags account
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /account [get]
// @Security Bearer
func GetAccount(ledgerSvc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		acct, err := ledgerSvc.GetAccountByUser(c.Context(), claims.UserID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", toAccountResponse(acct))
	}
}

// TopUp credits the caller's own account.
// @Summary Top up my balance
// @Tags account
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body TopUpRequest true "Amount"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /account/top-up [post]
// @Security Bearer
func TopUp(topUpSvc *topup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[TopUpRequest](c)
		if input == nil {
			return err
		}
		res, err := topUpSvc.TopUp(c.Context(), claims.UserID, input.Amount.Decimal(), utils.CopyString(c.Get(common.HeaderIdempotencyKey)))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Top-up rejected", err)
		}
		common.MarkReplayed(c, res.Replayed)
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Balance topped up", toEntryResponse(res.Entry))
	}
}

// authorizeAccount parses :accountId and lets through its owner or an admin.
// When ok is false the problem response has been written and err is the
// result of writing it.
func authorizeAccount(c *fiber.Ctx, adminSvc *admin.Service) (accountID uuid.UUID, ok bool, err error) {
	claims, cerr := common.CurrentClaims(c)
	if cerr != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Unauthorized", cerr)
	}
	accountID, perr := uuid.Parse(c.Params("accountId"))
	if perr != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Invalid account ID", domainledger.ErrAccountNotFound)
	}
	if accountID == claims.AccountID {
		return accountID, true, nil
	}
	if aerr := adminSvc.Authorize(c.Context(), claims.UserID); aerr != nil {
		return uuid.Nil, false, common.ProblemDetailsJSON(c, "Forbidden", aerr)
	}
	return accountID, true, nil
}
