package events

import (
	"context"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
)

// LocalEventBus delivers events to subscribers in the same process. It is used
// when Redis is disabled.
type LocalEventBus struct {
	hub *hub
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{hub: newHub()}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// Publish delivers event to every current subscriber of channel without blocking
func (b *LocalEventBus) Publish(_ context.Context, channel string, event *entities.BookingEvent) error {
	b.hub.deliver(channel, event)
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.BookingEvent, error) {
	stream, _ := b.hub.add(channel)
	go func() {
		<-ctx.Done()
		b.hub.remove(channel, stream)
	}()
	return stream, nil
}

// Close closes every subscriber stream
func (b *LocalEventBus) Close() error {
	b.hub.close()
	return nil
}
