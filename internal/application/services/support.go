package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// validateID rejects ids that are not UUIDs before they reach storage
func validateID(field, id string) error {
	if id == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s is required", field))
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("%s %q is not a valid id", field, id))
	}
	return nil
}

// rollback is deferred by every transactional operation; it is a no-op after Commit
func rollback(tx repositories.Tx) {
	if err := tx.Rollback(); err != nil {
		log.Warn().Err(err).Msg("failed to roll back transaction")
	}
}

// publishEvent fans a committed change out to the global and provider channels.
// Delivery is best effort.
func publishEvent(ctx context.Context, bus providers.EventBus, event *entities.BookingEvent) {
	if bus == nil {
		return
	}
	for _, channel := range []string{providers.EventChannelBookings, providers.GetProviderChannel(event.ProviderID)} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			log.Warn().
				Err(err).
				Str("channel", channel).
				Str("event_type", string(event.Type)).
				Str("booking_id", event.BookingID).
				Msg("failed to publish booking event")
		}
	}
}
