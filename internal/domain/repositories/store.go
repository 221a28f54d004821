package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// Store is the persistence handle injected into every service
type Store interface {
	Slots() SlotRepository
	Bindings() BindingRepository
	Bookings() BookingRepository

	// BeginTx opens a transaction. The caller owns the returned Tx and must
	// Commit or Rollback it.
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction-scoped handle. Every Lock* method takes a row lock held
// until Commit or Rollback, so a check followed by a write on the same row is
// atomic with respect to other transactions.
type Tx interface {
	// LockBinding loads the provider's binding for slotID and locks it
	LockBinding(ctx context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error)

	// ReserveBinding sets is_reserved and the booking back-reference
	ReserveBinding(ctx context.Context, bindingID, bookingID string, at time.Time) error

	// ReleaseBinding clears is_reserved and the booking back-reference
	ReleaseBinding(ctx context.Context, bindingID string, at time.Time) error

	// DeleteBinding removes an unreserved binding
	DeleteBinding(ctx context.Context, bindingID string) error

	// InsertBooking persists a new booking
	InsertBooking(ctx context.Context, booking *entities.Booking) error

	// LockBooking loads a booking by ID and locks it
	LockBooking(ctx context.Context, bookingID string) (*entities.Booking, error)

	// UpdateBookingStatus sets the lifecycle status
	UpdateBookingStatus(ctx context.Context, bookingID string, status entities.BookingStatus, at time.Time) error

	// MarkBookingPaid sets payment_status to PAID
	MarkBookingPaid(ctx context.Context, bookingID string, at time.Time) error

	// DeleteBooking removes a booking
	DeleteBooking(ctx context.Context, bookingID string) error

	// InsertPaymentIntent persists a new payment intent
	InsertPaymentIntent(ctx context.Context, payment *entities.PaymentIntent) error

	// LockPaymentIntent loads the intent for a booking and locks it
	LockPaymentIntent(ctx context.Context, bookingID string) (*entities.PaymentIntent, error)

	// MarkPaymentPaid sets status PAID and stores gateway metadata
	MarkPaymentPaid(ctx context.Context, paymentID string, gatewayData json.RawMessage, at time.Time) error

	// DeletePaymentIntents removes every intent belonging to a booking
	DeletePaymentIntents(ctx context.Context, bookingID string) error

	Commit() error
	Rollback() error
}
