package entities

import "time"

// AvailabilityBinding ties a provider to a TimeSlot and is the sole authority on
// whether that provider's slot is free. IsReserved is true exactly when BookingID is set.
type AvailabilityBinding struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	SlotID     string    `json:"slot_id" db:"slot_id"`
	IsReserved bool      `json:"is_reserved" db:"is_reserved"`
	BookingID  *string   `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Slot is populated by listing queries that join time_slots
	Slot *TimeSlot `json:"slot,omitempty" db:"-"`
}

// Reserve marks the binding as held by bookingID
func (b *AvailabilityBinding) Reserve(bookingID string, at time.Time) {
	b.IsReserved = true
	b.BookingID = &bookingID
	b.UpdatedAt = at
}

// Release returns the binding to the unbooked pool
func (b *AvailabilityBinding) Release(at time.Time) {
	b.IsReserved = false
	b.BookingID = nil
	b.UpdatedAt = at
}
