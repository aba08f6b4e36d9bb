// Package purchase serves storefront checkout paid from the balance.
package purchase

import (
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/middleware"
	purchasesvc "github.com/amirasaad/ledger/pkg/service/purchase"
	"github.com/amirasaad/ledger/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

func Routes(app *fiber.App, purchaseSvc *purchasesvc.Service, cfg *config.Jwt) {
	protected := middleware.JwtProtected(cfg)
	app.Post("/purchases", protected, Checkout(purchaseSvc))
	app.Get("/purchases", protected, List(purchaseSvc))
}

// Checkout debits the cart total and records the purchase.
// @Summary Checkout a cart
// @Description Pay for a cart from the balance. The purchase and its debit are committed together.
// @Tags purchases
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Idempotency key"
// @Param request body CheckoutInput true "Cart"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /purchases [post]
// @Security Bearer
func Checkout(purchaseSvc *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[CheckoutInput](c)
		if input == nil {
			return err
		}
		res, err := purchaseSvc.Checkout(c.Context(), purchasesvc.CheckoutRequest{
			UserID:         claims.UserID,
			Items:          input.items(),
			Total:          input.Total.Decimal(),
			IdempotencyKey: utils.CopyString(c.Get(common.HeaderIdempotencyKey)),
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Checkout failed", err)
		}
		common.MarkReplayed(c, res.Replayed)
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Purchase completed", CheckoutResponse{
			Purchase:   toPurchaseResponse(res.Purchase),
			NewBalance: common.NewAmount(res.Entry.BalanceAfter),
		})
	}
}

// List returns the caller's purchases, newest first.
// @Summary List my purchases
// @Tags purchases
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /purchases [get]
// @Security Bearer
func List(purchaseSvc *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := common.CurrentClaims(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		list, err := purchaseSvc.List(c.Context(), claims.UserID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list purchases", err)
		}
		out := make([]PurchaseResponse, 0, len(list))
		for _, p := range list {
			out = append(out, toPurchaseResponse(p))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchases fetched", out)
	}
}
