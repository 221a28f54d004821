package providers

import (
	"context"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// EventBus carries booking lifecycle events after the change that caused them commits
type EventBus interface {
	// Publish publishes an event to a channel
	Publish(ctx context.Context, channel string, event *entities.BookingEvent) error

	// Subscribe returns a stream of events on channel. The stream is closed when
	// ctx is done or the bus is closed.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.BookingEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelBookings carries every booking lifecycle event
	EventChannelBookings = "bookings:events"

	// EventChannelProviderPrefix is the prefix for provider-specific channels
	EventChannelProviderPrefix = "bookings:provider:"
)

// GetProviderChannel returns the channel name for a specific provider
func GetProviderChannel(providerID string) string {
	return EventChannelProviderPrefix + providerID
}
