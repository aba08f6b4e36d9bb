// Command kafka_smoketest publishes one ledger.entry_recorded event through
// the Kafka event bus and waits until a consumer receives it.
//
// Usage: BROKERS=localhost:9092 go run ./scripts/kafka_smoketest
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/amirasaad/ledger/infra/eventbus"
	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunSmokeTest emits an event on a fresh consumer group and reports whether
// it came back.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9092"
	}

	bus, err := infra_eventbus.NewWithKafka(brokers, logger, &infra_eventbus.KafkaEventBusConfig{
		GroupID:     "ledger-smoketest-" + uuid.NewString()[:8],
		TopicPrefix: "ledger.smoketest",
	})
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	want := events.EntryRecorded{
		EntryID:      uuid.NewString(),
		AccountID:    uuid.New(),
		Sequence:     1,
		Delta:        decimal.RequireFromString("1.00"),
		BalanceAfter: decimal.RequireFromString("1.00"),
		Reason:       "admin_adjustment",
		CreatedAt:    time.Now().UTC(),
	}

	received := make(chan string, 1)
	bus.Register(events.EventTypeEntryRecorded, func(_ context.Context, e events.Event) error {
		if evt, ok := e.(*events.EntryRecorded); ok {
			select {
			case received <- evt.EntryID:
			default:
			}
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bus.Emit(ctx, want); err != nil {
		return err
	}
	logger.Info("produced", "entry_id", want.EntryID)

	for {
		select {
		case id := <-received:
			if id == want.EntryID {
				logger.Info("consumed", "entry_id", id)
				return nil
			}
		case <-ctx.Done():
			return errors.New("timed out waiting for the event")
		}
	}
}

func main() {
	if err := RunSmokeTest(); err != nil {
		slog.Error("Kafka smoke test failed", "error", err)
		os.Exit(1)
	}
}
