package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// BindingRepository defines the interface for provider availability bindings
type BindingRepository interface {
	// BulkCreate binds providerID to each slot, skipping pairs that already exist.
	// It returns the number of bindings created.
	BulkCreate(ctx context.Context, providerID string, slotIDs []string) (int, error)

	// Get retrieves the provider's binding for a slot
	Get(ctx context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error)

	// List retrieves bindings matching filter, with Slot populated
	List(ctx context.Context, filter BindingFilter) ([]*entities.AvailabilityBinding, error)

	// CountBySlot returns how many providers are bound to a slot
	CountBySlot(ctx context.Context, slotID string) (int, error)
}

// BindingFilter defines filters for listing bindings
type BindingFilter struct {
	ProviderID string
	Reserved   *bool
	From       *time.Time
	To         *time.Time
	Page       Page
}
