package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	redisclient "github.com/zatekoja/slotbooking/internal/infrastructure/clients/redis"
)

// RedisEventBus implements EventBus over Redis Pub/Sub, so subscribers on every
// replica see events published by any replica. All channels share one Pub/Sub
// connection; a Redis channel is subscribed while it has local subscribers.
type RedisEventBus struct {
	client *redisclient.Client
	hub    *hub

	// mu serializes changes to the Redis subscription set
	mu     sync.Mutex
	pubsub *redis.PubSub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		hub:    newHub(),
		ctx:    ctx,
		cancel: cancel,
	}
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish publishes an event to all subscribers of channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.BookingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("published booking event")
	return nil
}

// Subscribe returns a stream of the events published on channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.BookingEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return nil, fmt.Errorf("event bus is closed")
	}

	stream, first := b.hub.add(channel)
	if first {
		if err := b.subscribe(ctx, channel); err != nil {
			b.hub.remove(channel, stream)
			return nil, err
		}
	}
	log.Debug().Str("channel", channel).Int("subscribers", b.hub.count(channel)).Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
			return
		}
		b.unsubscribe(channel, stream)
	}()
	return stream, nil
}

// subscribe adds channel to the shared connection, opening it on first use.
// Callers hold b.mu.
func (b *RedisEventBus) subscribe(ctx context.Context, channel string) error {
	if b.pubsub == nil {
		b.pubsub = b.client.Client().Subscribe(b.ctx, channel)
		if _, err := b.pubsub.Receive(ctx); err != nil {
			_ = b.pubsub.Close()
			b.pubsub = nil
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		go b.receive(b.pubsub.Channel())
		return nil
	}
	if err := b.pubsub.Subscribe(ctx, channel); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisEventBus) unsubscribe(channel string, stream chan *entities.BookingEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hub.remove(channel, stream) || b.pubsub == nil {
		return
	}
	if err := b.pubsub.Unsubscribe(context.Background(), channel); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to unsubscribe from channel")
	}
}

// receive fans messages from Redis out to local subscribers
func (b *RedisEventBus) receive(messages <-chan *redis.Message) {
	for msg := range messages {
		var event entities.BookingEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to unmarshal booking event")
			continue
		}
		b.hub.deliver(msg.Channel, &event)
	}
}

// Close closes the Redis subscription and every subscriber stream
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancel()
	var err error
	if b.pubsub != nil {
		err = b.pubsub.Close()
		b.pubsub = nil
	}
	b.hub.close()

	log.Info().Msg("event bus closed")
	return err
}
