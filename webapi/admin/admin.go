// Package admin serves the operator screens: account listing, adjustments
// and reconciliation.
package admin

import (
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/middleware"
	adminsvc "github.com/amirasaad/ledger/pkg/service/admin"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

func Routes(app *fiber.App, adminSvc *adminsvc.Service, cfg *config.Jwt) {
	group := app.Group("/admin", middleware.JwtProtected(cfg))
	group.Get("/accounts", ListAccounts(adminSvc))
	group.Post("/adjustments", Adjust(adminSvc))
	group.Get("/accounts/:accountId/reconcile", Reconcile(adminSvc))
}

// ListAccounts returns every account with its owner's email and balance.
// @Summary List accounts
// @Tags admin
// @Produce json
// @Param page query int false "Page (from 1)"
// @Param size query int false "Page size (default 50, max 200)"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /admin/accounts [get]
// @Security Bearer
func ListAccounts(adminSvc *adminsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		list, err := adminSvc.ListAccounts(c.Context(), claims.UserID, c.QueryInt("page", 1), c.QueryInt("size", 0))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		rows := make([]AccountRow, 0, len(list))
		for _, a := range list {
			rows = append(rows, AccountRow{
				AccountID: a.AccountID,
				UserID:    a.UserID,
				Username:  a.Username,
				Email:     a.Email,
				Balance:   common.NewAmount(a.Balance),
				IsAdmin:   a.IsAdmin,
			})
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", rows)
	}
}

// Adjust applies an operator adjustment by account id or email.
// @Summary Adjust a balance
// @Tags admin
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body AdjustInput true "Adjustment"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /admin/adjustments [post]
// @Security Bearer
func Adjust(adminSvc *adminsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AdjustInput](c)
		if input == nil {
			return err
		}
		res, err := adminSvc.Adjust(c.Context(), claims.UserID, adminsvc.AdjustRequest{
			Target:         input.Target,
			Delta:          input.Delta.Decimal(),
			Reason:         input.Reason,
			IdempotencyKey: utils.CopyString(c.Get(common.HeaderIdempotencyKey)),
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Adjustment rejected", err)
		}
		common.MarkReplayed(c, res.Replayed)
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Adjustment recorded", AdjustResponse{
			EntryID:    res.Entry.ID,
			AccountID:  res.Entry.AccountID,
			NewBalance: common.NewAmount(res.Entry.BalanceAfter),
		})
	}
}

// Reconcile verifies that an account's balance matches its entries.
// @Summary Reconcile an account
// @Tags admin
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{accountId}/reconcile [get]
// @Security Bearer
func Reconcile(adminSvc *adminsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		accountID, err := uuid.Parse(c.Params("accountId"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", ledger.ErrAccountNotFound)
		}
		rec, err := adminSvc.Reconcile(c.Context(), claims.UserID, accountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Reconciliation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Reconciled", ReconcileResponse{
			AccountID:   rec.AccountID,
			Balance:     common.NewAmount(rec.Balance),
			Sum:         common.NewAmount(rec.Sum),
			LastBalance: common.NewAmount(rec.LastBalance),
			Entries:     rec.Entries,
			Version:     rec.Version,
			Consistent:  rec.Consistent,
		})
	}
}
