package entities

import (
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// PaymentStatus represents whether a booking has been paid for
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

var bookingStatuses = []BookingStatus{
	BookingStatusPending, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled,
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// Valid reports whether s is a known booking status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPaid
}

// Booking is a requester's reservation of one provider binding
type Booking struct {
	ID             string        `json:"id" db:"id"`
	RequesterID    string        `json:"requester_id" db:"requester_id"`
	RequesterEmail string        `json:"requester_email" db:"requester_email"`
	ProviderID     string        `json:"provider_id" db:"provider_id"`
	SlotID         string        `json:"slot_id" db:"slot_id"`
	BindingID      string        `json:"binding_id" db:"binding_id"`
	VideoCallID    string        `json:"video_call_id" db:"video_call_id"`
	Status         BookingStatus `json:"status" db:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status" db:"payment_status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// IsStaleUnpaid reports whether the booking is unpaid and was created at or before cutoff
func (b *Booking) IsStaleUnpaid(cutoff time.Time) bool {
	return b.PaymentStatus == PaymentStatusUnpaid && !b.CreatedAt.After(cutoff)
}
