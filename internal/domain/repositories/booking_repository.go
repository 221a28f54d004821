package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// BookingRepository defines read operations on bookings and their payment intents.
// Mutations go through Tx.
type BookingRepository interface {
	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// List retrieves bookings matching filter
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)

	// ListStaleUnpaid returns up to limit UNPAID bookings created at or before cutoff, oldest first
	ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error)

	// GetPaymentIntent retrieves the payment intent of a booking
	GetPaymentIntent(ctx context.Context, bookingID string) (*entities.PaymentIntent, error)

	// GetPaymentIntentByTransaction retrieves a payment intent by its transaction id
	GetPaymentIntentByTransaction(ctx context.Context, transactionID string) (*entities.PaymentIntent, error)

	// Summarize counts bookings by status and totals their PAID intents
	Summarize(ctx context.Context, filter SummaryFilter) (*entities.BookingSummary, error)
}

// SummaryFilter scopes a summary. Empty fields match every booking.
type SummaryFilter struct {
	RequesterID string
	ProviderID  string
}

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	RequesterID   string
	ProviderID    string
	Status        entities.BookingStatus
	PaymentStatus entities.PaymentStatus
	Page          Page
}
