// Package audit subscribes to ledger events and writes them to the
// structured log. Every committed entry appears exactly once per bus
// delivery.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/eventbus"
)

// HandleEntryRecorded logs each EntryRecorded event. The memory bus hands
// over values while the Redis and Kafka consumers decode into pointers, so
// both are accepted.
func HandleEntryRecorded(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "audit.HandleEntryRecorded", "event_type", e.Type())

		var er events.EntryRecorded
		switch v := e.(type) {
		case events.EntryRecorded:
			er = v
		case *events.EntryRecorded:
			er = *v
		default:
			err := fmt.Errorf("unexpected event type: %T", e)
			log.Error("unexpected event type", "error", err)
			return err
		}

		log.InfoContext(ctx, "Ledger entry recorded",
			"entry_id", er.EntryID,
			"account_id", er.AccountID,
			"sequence", er.Sequence,
			"delta", er.Delta.StringFixed(2),
			"balance_after", er.BalanceAfter.StringFixed(2),
			"reason", er.Reason,
		)
		return nil
	}
}

// HandlePurchaseCompleted logs each completed checkout.
func HandlePurchaseCompleted(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With("handler", "audit.HandlePurchaseCompleted", "event_type", e.Type())

		var pc events.PurchaseCompleted
		switch v := e.(type) {
		case events.PurchaseCompleted:
			pc = v
		case *events.PurchaseCompleted:
			pc = *v
		default:
			err := fmt.Errorf("unexpected event type: %T", e)
			log.Error("unexpected event type", "error", err)
			return err
		}

		log.InfoContext(ctx, "Purchase completed",
			"purchase_id", pc.PurchaseID,
			"user_id", pc.UserID,
			"account_id", pc.AccountID,
			"entry_id", pc.EntryID,
			"total", pc.TotalAmount.StringFixed(2),
		)
		return nil
	}
}
