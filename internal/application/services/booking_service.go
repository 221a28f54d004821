package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// CreateBookingRequest names the provider binding a requester wants to reserve
type CreateBookingRequest struct {
	ProviderID string `json:"provider_id"`
	SlotID     string `json:"slot_id"`
}

// BookingQuery filters a caller's bookings
type BookingQuery struct {
	Status        entities.BookingStatus
	PaymentStatus entities.PaymentStatus
	repositories.Page
}

// BookingService reserves bindings and creates bookings with their payment intents
type BookingService struct {
	store   repositories.Store
	fees    providers.FeeSchedule
	events  providers.EventBus
	metrics *observability.Metrics
	now     func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	store repositories.Store,
	fees providers.FeeSchedule,
	events providers.EventBus,
	metrics *observability.Metrics,
) *BookingService {
	return &BookingService{
		store:   store,
		fees:    fees,
		events:  events,
		metrics: metrics,
		now:     time.Now,
	}
}

// CreateBooking reserves the provider's binding for the slot and records the booking
// and its payment intent in one transaction. When another request reserved the
// binding first it fails with a conflict and nothing is written.
func (s *BookingService) CreateBooking(ctx context.Context, caller entities.Identity, req CreateBookingRequest) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.CreateBooking",
		attribute.String("provider.id", req.ProviderID),
		attribute.String("slot.id", req.SlotID),
	)
	defer span.End()

	if caller.Role != entities.RoleRequester {
		return nil, apperrors.NewForbiddenError("only requesters can book slots")
	}
	if err := validateID("requester id", caller.ID); err != nil {
		return nil, err
	}
	if err := validateID("provider id", req.ProviderID); err != nil {
		return nil, err
	}
	if err := validateID("slot id", req.SlotID); err != nil {
		return nil, err
	}

	fee, err := s.fees.AppointmentFee(ctx, req.ProviderID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	booking, err := s.reserve(ctx, caller, req, fee)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			s.metrics.Add(ctx, observability.BookingConflicts, 1)
		}
		observability.RecordError(span, err)
		return nil, err
	}

	s.metrics.Add(ctx, observability.BookingsCreated, 1)
	observability.BookingLogger(ctx, booking).Info().
		Str("requester_id", booking.RequesterID).
		Msg("booking created")

	publishEvent(ctx, s.events, entities.NewBookingEvent(entities.BookingEventCreated, booking, nil))
	return booking, nil
}

func (s *BookingService) reserve(ctx context.Context, caller entities.Identity, req CreateBookingRequest, fee providers.Fee) (*entities.Booking, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(tx)

	// The lock makes this check and the reservation below atomic against other bookers.
	binding, err := tx.LockBinding(ctx, req.ProviderID, req.SlotID)
	if err != nil {
		return nil, err
	}
	if binding.IsReserved {
		return nil, apperrors.NewConflictError("slot already reserved")
	}

	now := s.now().UTC()
	booking := &entities.Booking{
		ID:             uuid.New().String(),
		RequesterID:    caller.ID,
		RequesterEmail: caller.Email,
		ProviderID:     req.ProviderID,
		SlotID:         req.SlotID,
		BindingID:      binding.ID,
		VideoCallID:    uuid.New().String(),
		Status:         entities.BookingStatusPending,
		PaymentStatus:  entities.PaymentStatusUnpaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}
	if err := tx.ReserveBinding(ctx, binding.ID, booking.ID, now); err != nil {
		return nil, err
	}

	payment := &entities.PaymentIntent{
		ID:            uuid.New().String(),
		BookingID:     booking.ID,
		Amount:        fee.Amount,
		Currency:      fee.Currency,
		TransactionID: entities.NewTransactionID(now),
		Status:        entities.PaymentIntentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.InsertPaymentIntent(ctx, payment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetBooking retrieves a booking visible to caller
func (s *BookingService) GetBooking(ctx context.Context, caller entities.Identity, id string) (*entities.Booking, error) {
	if err := validateID("booking id", id); err != nil {
		return nil, err
	}
	booking, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller, booking) {
		return nil, apperrors.NewForbiddenError("booking belongs to another user")
	}
	return booking, nil
}

// ListBookings lists the caller's bookings. Requesters see what they booked,
// providers see what was booked with them and admins see everything.
func (s *BookingService) ListBookings(ctx context.Context, caller entities.Identity, query BookingQuery) ([]*entities.Booking, error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown booking status " + string(query.Status))
	}
	if query.PaymentStatus != "" && !query.PaymentStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown payment status " + string(query.PaymentStatus))
	}

	filter := repositories.BookingFilter{
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		Page:          query.Page,
	}
	switch {
	case caller.IsAdmin():
	case caller.Role == entities.RoleProvider:
		filter.ProviderID = caller.ID
	case caller.Role == entities.RoleRequester:
		filter.RequesterID = caller.ID
	default:
		return nil, apperrors.NewForbiddenError("unknown role " + string(caller.Role))
	}

	return s.store.Bookings().List(ctx, filter)
}

// Summary aggregates the bookings the caller can see. Admins get totals over
// every booking, providers over their own, requesters their own counts without
// revenue.
func (s *BookingService) Summary(ctx context.Context, caller entities.Identity) (*entities.BookingSummary, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.Summary",
		attribute.String("caller.role", string(caller.Role)),
	)
	defer span.End()

	var filter repositories.SummaryFilter
	switch {
	case caller.IsAdmin():
	case caller.Role == entities.RoleProvider:
		filter.ProviderID = caller.ID
	case caller.Role == entities.RoleRequester:
		filter.RequesterID = caller.ID
	default:
		return nil, apperrors.NewForbiddenError("unknown role " + string(caller.Role))
	}

	summary, err := s.store.Bookings().Summarize(ctx, filter)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if caller.Role == entities.RoleRequester {
		summary.Revenue = nil
	}
	return summary, nil
}

func canView(caller entities.Identity, booking *entities.Booking) bool {
	switch {
	case caller.IsAdmin():
		return true
	case caller.Role == entities.RoleProvider:
		return booking.ProviderID == caller.ID
	case caller.Role == entities.RoleRequester:
		return booking.RequesterID == caller.ID
	}
	return false
}
