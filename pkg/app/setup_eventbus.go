// Package app wires the services together and registers the event handlers
// on the configured bus.
package app

import (
	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/handler/audit"
)

// setupEventBus registers all event handlers with the bus.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	if bus == nil {
		return
	}
	logger := a.Deps.Logger.With("component", "audit")

	bus.Register(events.EventTypeEntryRecorded, audit.HandleEntryRecorded(logger))
	bus.Register(events.EventTypePurchaseCompleted, audit.HandlePurchaseCompleted(logger))
}
