package entities

import (
	"time"

	"github.com/google/uuid"
)

// BookingEventType represents the type of booking lifecycle event
type BookingEventType string

const (
	BookingEventCreated       BookingEventType = "booking.created"
	BookingEventStatusChanged BookingEventType = "booking.status_changed"
	BookingEventReclaimed     BookingEventType = "booking.reclaimed"
	BookingEventPaid          BookingEventType = "payment.paid"
)

// BookingEvent is published after a booking mutation commits
type BookingEvent struct {
	ID          string            `json:"id"`
	Type        BookingEventType  `json:"type"`
	BookingID   string            `json:"booking_id"`
	ProviderID  string            `json:"provider_id"`
	RequesterID string            `json:"requester_id"`
	SlotID      string            `json:"slot_id"`
	Timestamp   time.Time         `json:"timestamp"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// NewBookingEvent creates an event describing booking
func NewBookingEvent(eventType BookingEventType, booking *Booking, attrs map[string]string) *BookingEvent {
	return &BookingEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		BookingID:   booking.ID,
		ProviderID:  booking.ProviderID,
		RequesterID: booking.RequesterID,
		SlotID:      booking.SlotID,
		Timestamp:   time.Now().UTC(),
		Attributes:  attrs,
	}
}
