package eventbus

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/events"
)

// HandlerFunc processes one event delivered by a Bus.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus publishes events and dispatches them to registered handlers.
type Bus interface {
	Register(eventType events.EventType, handler HandlerFunc)
	Emit(ctx context.Context, event events.Event) error
}
