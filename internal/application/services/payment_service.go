package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
	"github.com/zatekoja/slotbooking/pkg/retry"
)

// PaymentCallback is the query or form payload the gateway redirects back with
type PaymentCallback map[string]string

// PaymentService initiates payments and records their confirmation
type PaymentService struct {
	store   repositories.Store
	gateway providers.PaymentGateway
	events  providers.EventBus
	metrics *observability.Metrics
	retry   retry.Config
	now     func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store repositories.Store,
	gateway providers.PaymentGateway,
	events providers.EventBus,
	metrics *observability.Metrics,
) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		events:  events,
		metrics: metrics,
		retry:   retry.TransactionConfig(),
		now:     time.Now,
	}
}

// InitiatePayment starts collecting the fee of a booking with the gateway
func (s *PaymentService) InitiatePayment(ctx context.Context, caller entities.Identity, bookingID string) (*providers.PaymentSession, error) {
	ctx, span := observability.StartSpan(ctx, "PaymentService.InitiatePayment",
		attribute.String("booking.id", bookingID),
	)
	defer span.End()

	if err := validateID("booking id", bookingID); err != nil {
		return nil, err
	}
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && (caller.Role != entities.RoleRequester || booking.RequesterID != caller.ID) {
		return nil, apperrors.NewForbiddenError("only the requester of a booking can pay for it")
	}

	payment, err := s.store.Bookings().GetPaymentIntent(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment.Status == entities.PaymentIntentStatusPaid {
		return nil, apperrors.NewConflictError("booking is already paid")
	}

	session, err := s.gateway.Initiate(ctx, providers.PaymentRequest{
		BookingID:     booking.ID,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		CustomerEmail: booking.RequesterEmail,
		Description:   fmt.Sprintf("Appointment booking %s", booking.ID),
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().
		Str("booking_id", booking.ID).
		Str("transaction_id", payment.TransactionID).
		Str("gateway_ref", session.GatewayRef).
		Msg("payment initiated")
	return session, nil
}

// ConfirmPayment validates a gateway callback and marks the payment paid when the
// gateway says it is.
func (s *PaymentService) ConfirmPayment(ctx context.Context, payload PaymentCallback) (*entities.PaymentIntent, error) {
	validation, err := s.gateway.Validate(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !validation.Paid {
		return nil, apperrors.NewValidationError(fmt.Sprintf("payment %s is not paid", validation.TransactionID))
	}
	return s.MarkPaid(ctx, validation.TransactionID, validation.Metadata)
}

// MarkPaid sets the payment intent and its booking to PAID in one transaction.
// Marking an already paid intent returns it unchanged.
func (s *PaymentService) MarkPaid(ctx context.Context, transactionID string, metadata json.RawMessage) (*entities.PaymentIntent, error) {
	ctx, span := observability.StartSpan(ctx, "PaymentService.MarkPaid",
		attribute.String("payment.transaction_id", transactionID),
	)
	defer span.End()

	if transactionID == "" {
		return nil, apperrors.NewValidationError("transaction id is required")
	}

	var (
		payment *entities.PaymentIntent
		booking *entities.Booking
		changed bool
	)
	err := retry.DoWithLog(ctx, s.retry, "mark paid", func() error {
		var err error
		payment, booking, changed, err = s.markPaid(ctx, transactionID, metadata)
		if err != nil && !apperrors.IsRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Str("transaction_id", transactionID).
			Msg("mark paid failed, retrying")
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if changed {
		s.metrics.Add(ctx, observability.BookingsPaid, 1)
		observability.BookingLogger(ctx, booking).Info().
			Str("transaction_id", transactionID).
			Msg("payment marked paid")
		publishEvent(ctx, s.events, entities.NewBookingEvent(entities.BookingEventPaid, booking, map[string]string{
			"transaction_id": transactionID,
		}))
	}
	return payment, nil
}

func (s *PaymentService) markPaid(ctx context.Context, transactionID string, metadata json.RawMessage) (*entities.PaymentIntent, *entities.Booking, bool, error) {
	found, err := s.store.Bookings().GetPaymentIntentByTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, false, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	defer rollback(tx)

	// Same lock order as the reclaimer: booking first, then its payment intent.
	booking, err := tx.LockBooking(ctx, found.BookingID)
	if err != nil {
		return nil, nil, false, err
	}
	payment, err := tx.LockPaymentIntent(ctx, booking.ID)
	if err != nil {
		return nil, nil, false, err
	}
	if payment.Status == entities.PaymentIntentStatusPaid {
		return payment, booking, false, nil
	}

	now := s.now().UTC()
	if err := tx.MarkPaymentPaid(ctx, payment.ID, metadata, now); err != nil {
		return nil, nil, false, err
	}
	if err := tx.MarkBookingPaid(ctx, booking.ID, now); err != nil {
		return nil, nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, false, err
	}

	payment.Status = entities.PaymentIntentStatusPaid
	payment.GatewayData = metadata
	payment.UpdatedAt = now
	booking.PaymentStatus = entities.PaymentStatusPaid
	booking.UpdatedAt = now
	return payment, booking, true, nil
}
