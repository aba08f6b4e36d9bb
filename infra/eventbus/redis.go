package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/events"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events to a Redis Stream and consumes them through
// a consumer group.
type RedisEventBus struct {
	client *redis.Client
	stream string
	group  string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a Redis Streams event bus on an existing client.
func NewWithRedis(client *redis.Client, stream, group string, logger *slog.Logger) (*RedisEventBus, error) {
	if client == nil || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: client, stream, and group are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	return &RedisEventBus{
		client: client,
		stream: stream,
		group:  group,
		logger: logger.With("bus", "redis", "stream", stream),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Emit publishes an event to the stream.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	envBytes, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register starts a consumer that calls handler for every event of
// eventType. Each event type reads through its own consumer group so every
// registered type sees the whole stream; other types are acknowledged and
// skipped.
func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	group := b.groupFor(eventType)
	consumer := fmt.Sprintf("consumer-%s-%d", eventType, time.Now().UnixNano())
	if err := b.client.XGroupCreateMkStream(b.ctx, b.stream, group, "$").Err(); err != nil && !isBusyGroup(err) {
		b.logger.Error("failed to create consumer group", "error", err, "group", group)
		return
	}
	b.logger.Info("registering handler", "event_type", eventType, "group", group, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(eventType, group, consumer, handler)
	}()
}

func (b *RedisEventBus) groupFor(eventType events.EventType) string {
	return b.group + ":" + eventType.String()
}

func (b *RedisEventBus) consume(eventType events.EventType, group, consumer string, handler eventbus.HandlerFunc) {
	ctx := b.ctx
	for {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err, "consumer", consumer)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handleMessage(ctx, eventType, msg, handler)
				if err := b.client.XAck(ctx, b.stream, group, msg.ID).Err(); err != nil {
					b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
				}
			}
		}
	}
}

func (b *RedisEventBus) handleMessage(
	ctx context.Context,
	eventType events.EventType,
	msg redis.XMessage,
	handler eventbus.HandlerFunc,
) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}
	evt, err := decodeEnvelope([]byte(raw))
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	if evt.Type() != eventType.String() {
		return
	}
	if !runHandlers(ctx, b.logger, evt, []eventbus.HandlerFunc{handler}) {
		b.pushToDLQ(ctx, msg.Values)
	}
}

// pushToDLQ copies a failed message to the dead letter stream.
func (b *RedisEventBus) pushToDLQ(ctx context.Context, values map[string]any) {
	dlqStream := b.stream + ":dlq"
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlqStream,
		Values: values,
	}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlqStream)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlqStream)
}

// Close stops the consumers. The client is owned by the caller.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
