package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisClient(tb *testing.T) *redis.Client {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping redis container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(tb)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		tb.Skipf("failed to start redis container: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(tb, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	tb.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisEventBus_HandlerReceivesEvent(t *testing.T) {
	client := setupRedisClient(t)
	bus, err := NewWithRedis(client, "ledger:test-events", "ledger", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan *events.EntryRecorded, 1)
	bus.Register(events.EventTypeEntryRecorded, func(_ context.Context, e events.Event) error {
		received <- e.(*events.EntryRecorded)
		return nil
	})

	accountID := uuid.New()
	require.NoError(t, bus.Emit(context.Background(), events.EntryRecorded{EntryID: "E1", AccountID: accountID}))

	select {
	case evt := <-received:
		require.Equal(t, "E1", evt.EntryID)
		require.Equal(t, accountID, evt.AccountID)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNewWithRedis_Validation(t *testing.T) {
	_, err := NewWithRedis(nil, "s", "g", nil)
	require.Error(t, err)
}
