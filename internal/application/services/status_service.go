package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// StatusService applies role-gated lifecycle transitions to bookings
type StatusService struct {
	store  repositories.Store
	events providers.EventBus
	now    func() time.Time
}

// NewStatusService creates a new status service
func NewStatusService(store repositories.Store, events providers.EventBus) *StatusService {
	return &StatusService{store: store, events: events, now: time.Now}
}

// SetStatus moves a booking to status. Admins may change any booking, a provider
// only its own, and requesters none.
func (s *StatusService) SetStatus(ctx context.Context, caller entities.Identity, bookingID string, status entities.BookingStatus) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "StatusService.SetStatus",
		attribute.String("booking.id", bookingID),
		attribute.String("booking.status", string(status)),
	)
	defer span.End()

	if !caller.HasRole(entities.RoleAdmin, entities.RoleSuperAdmin, entities.RoleProvider) {
		return nil, apperrors.NewForbiddenError("only providers and admins can change booking status")
	}
	if err := validateID("booking id", bookingID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown booking status %q", status))
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	defer rollback(tx)

	booking, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role == entities.RoleProvider && booking.ProviderID != caller.ID {
		return nil, apperrors.NewForbiddenError("booking belongs to another provider")
	}
	if !booking.Status.CanTransitionTo(status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot move booking from %s to %s", booking.Status, status))
	}

	now := s.now().UTC()
	if err := tx.UpdateBookingStatus(ctx, bookingID, status, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	previous := booking.Status
	booking.Status = status
	booking.UpdatedAt = now

	observability.BookingLogger(ctx, booking).Info().
		Str("from", string(previous)).
		Str("to", string(status)).
		Str("caller_id", caller.ID).
		Msg("booking status changed")

	publishEvent(ctx, s.events, entities.NewBookingEvent(entities.BookingEventStatusChanged, booking, map[string]string{
		"from": string(previous),
		"to":   string(status),
	}))
	return booking, nil
}
