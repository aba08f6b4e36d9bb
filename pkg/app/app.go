package app

import (
	"log/slog"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/admin"
	"github.com/amirasaad/ledger/pkg/service/auth"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/amirasaad/ledger/pkg/service/purchase"
	"github.com/amirasaad/ledger/pkg/service/topup"
	"github.com/amirasaad/ledger/pkg/service/user"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	// Locker is optional; without it submissions are serialised only
	// within this process.
	Locker ledgersvc.Locker
	Logger *slog.Logger
}

type App struct {
	Deps            *Deps
	Config          *config.App
	AuthService     *auth.Service
	UserService     *user.Service
	LedgerService   *ledgersvc.Service
	TopUpService    *topup.Service
	PurchaseService *purchase.Service
	AdminService    *admin.Service
}

// New builds every service over deps and registers the event handlers.
func New(deps *Deps, cfg *config.App) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	var processorOpts []ledgersvc.ProcessorOption
	var serviceOpts []ledgersvc.Option
	if cfg.Ledger != nil {
		processorOpts = append(processorOpts, ledgersvc.WithMaxAttempts(cfg.Ledger.MaxAttempts))
		serviceOpts = append(serviceOpts, ledgersvc.WithPageSizes(cfg.Ledger.DefaultPageSize, cfg.Ledger.MaxPageSize))
	}
	guardOpts := []ledgersvc.GuardOption{ledgersvc.WithEventBus(deps.EventBus)}
	if deps.Locker != nil {
		guardOpts = append(guardOpts, ledgersvc.WithDistributedLock(deps.Locker))
	}

	processor := ledgersvc.NewProcessor(deps.Uow, deps.Logger, processorOpts...)
	guard := ledgersvc.NewGuard(processor, deps.Logger, guardOpts...)

	app.LedgerService = ledgersvc.New(deps.Uow, guard, deps.Logger, serviceOpts...)
	app.AuthService = auth.New(deps.Uow, cfg.Auth.Jwt, deps.Logger)
	app.UserService = user.New(deps.Uow, app.AuthService, deps.Logger)
	app.TopUpService = topup.New(deps.Uow, guard, deps.Logger)
	app.PurchaseService = purchase.New(deps.Uow, guard, deps.EventBus, deps.Logger)
	app.AdminService = admin.New(deps.Uow, app.LedgerService, deps.Logger)
	return app
}
