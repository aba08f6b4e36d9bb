// Package handler exposes the ledger HTTP API as a single net/http handler
// for serverless deployments.
package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/amirasaad/ledger/infra/initializer"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/webapi"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var (
	once    sync.Once
	served  http.HandlerFunc
	initErr error
)

// Handler is the entry point invoked by the platform for every request.
func Handler(w http.ResponseWriter, r *http.Request) {
	// This is needed to set the proper request path in `*fiber.Ctx`
	r.RequestURI = r.URL.String()

	once.Do(func() { served, initErr = build() })
	if initErr != nil {
		slog.Error("Ledger API unavailable", "error", initErr)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	served.ServeHTTP(w, r)
}

// build wires the application once per instance. Connections stay open for
// the lifetime of the instance.
func build() (http.HandlerFunc, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, err
	}
	return adaptor.FiberApp(webapi.SetupApp(app.New(deps.ToAppDeps(), cfg))), nil
}
