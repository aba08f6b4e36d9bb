// Package webapi assembles the HTTP surface of the ledger service.
// Routes live in sub-packages per area:
// - ledger: balance adjustments, balances and entry history
// - auth: login
// - user: registration and profile
// - purchase: checkout paid from the balance
// - admin: operator listing, adjustments and reconciliation
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/metrics"
	adminweb "github.com/amirasaad/ledger/webapi/admin"
	authweb "github.com/amirasaad/ledger/webapi/auth"
	"github.com/amirasaad/ledger/webapi/common"
	ledgerweb "github.com/amirasaad/ledger/webapi/ledger"
	purchaseweb "github.com/amirasaad/ledger/webapi/purchase"
	userweb "github.com/amirasaad/ledger/webapi/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(app *app.App) *fiber.App {
	cfg := app.Config
	jwtCfg := cfg.Auth.Jwt

	fiberCfg := fiber.Config{
		AppName: "ledger",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	}
	if cfg.Server != nil && cfg.Server.ReadTimeout > 0 {
		fiberCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	fiberApp := fiber.New(fiberCfg)

	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
	}))

	if rl := cfg.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:          rl.MaxRequests,
			Expiration:   rl.Window,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())
	origins := "*"
	if cfg.Server != nil && cfg.Server.AllowedOrigins != "" {
		origins = cfg.Server.AllowedOrigins
	}
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + common.HeaderIdempotencyKey,
		ExposeHeaders: common.HeaderIdempotentReplayed + ", Retry-After",
	}))

	health := func(c *fiber.Ctx) error {
		return c.SendString("Ledger API is running")
	}
	fiberApp.Get("/", health)
	fiberApp.Get("/api/v1/health", health)
	fiberApp.Get("/metrics", metrics.Handler())

	authweb.Routes(fiberApp, app.AuthService)
	userweb.Routes(fiberApp, app.UserService, jwtCfg)
	ledgerweb.Routes(fiberApp, app.LedgerService, app.TopUpService, app.AdminService, jwtCfg)
	purchaseweb.Routes(fiberApp, app.PurchaseService, jwtCfg)
	adminweb.Routes(fiberApp, app.AdminService, jwtCfg)
	return fiberApp
}

// clientKey identifies the caller for rate limiting: the first address in
// X-Forwarded-For, then X-Real-IP, then the peer address. The limiter keeps
// the key after the request, so header values are copied out of the buffer.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		if first, _, ok := strings.Cut(forwardedFor, ","); ok {
			return utils.CopyString(strings.TrimSpace(first))
		}
		return utils.CopyString(strings.TrimSpace(forwardedFor))
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return utils.CopyString(realIP)
	}
	return c.IP()
}
