package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// SlotRepository defines the interface for time slot data operations
type SlotRepository interface {
	// CreateIfAbsent inserts slot unless a slot with the same start and end
	// exists. It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, slot *entities.TimeSlot) (bool, error)

	// GetByID retrieves a time slot by ID
	GetByID(ctx context.Context, id string) (*entities.TimeSlot, error)

	// List retrieves slots matching filter
	List(ctx context.Context, filter SlotFilter) ([]*entities.TimeSlot, error)

	// Delete removes a slot that no binding references
	Delete(ctx context.Context, id string) error
}

// SlotFilter defines filters for listing open slots
type SlotFilter struct {
	// From keeps slots starting at or after From
	From *time.Time
	// To keeps slots ending at or before To
	To *time.Time
	// ExcludeProviderID drops slots that provider has already bound
	ExcludeProviderID string
	// Booked, when set, keeps slots that have (true) or lack (false) a reserved binding
	Booked *bool
	Page   Page
}
