package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// BindResult reports how many of the requested bindings were new
type BindResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// OpenSlotQuery filters slots offered for binding or booking
type OpenSlotQuery struct {
	From *time.Time
	To   *time.Time
	// ExcludeProviderID hides slots that provider has already bound
	ExcludeProviderID string
	// Booked selects slots with (true) or without (false) a reserved binding.
	// Nil means unbooked.
	Booked *bool
	repositories.Page
}

// BindingQuery filters provider bindings
type BindingQuery struct {
	ProviderID string
	Reserved   *bool
	From       *time.Time
	To         *time.Time
	repositories.Page
}

// AvailabilityService binds providers to slots and answers what is still open
type AvailabilityService struct {
	store repositories.Store
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(store repositories.Store) *AvailabilityService {
	return &AvailabilityService{store: store}
}

// Bind binds providerID to every slot in slotIDs. Pairs that already exist are skipped.
func (s *AvailabilityService) Bind(ctx context.Context, providerID string, slotIDs []string) (*BindResult, error) {
	ctx, span := observability.StartSpan(ctx, "AvailabilityService.Bind",
		attribute.String("provider.id", providerID),
		attribute.Int("slot.count", len(slotIDs)),
	)
	defer span.End()

	if err := validateID("provider id", providerID); err != nil {
		return nil, err
	}
	if len(slotIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one slot id is required")
	}

	unique := make([]string, 0, len(slotIDs))
	seen := make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		if err := validateID("slot id", id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	created, err := s.store.Bindings().BulkCreate(ctx, providerID, unique)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result := &BindResult{Created: created, Skipped: len(slotIDs) - created}
	log.Info().
		Str("provider_id", providerID).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("provider availability bound")
	return result, nil
}

// ListOpenSlots lists slots that can still be bound or booked
func (s *AvailabilityService) ListOpenSlots(ctx context.Context, query OpenSlotQuery) ([]*entities.TimeSlot, error) {
	if query.ExcludeProviderID != "" {
		if err := validateID("provider id", query.ExcludeProviderID); err != nil {
			return nil, err
		}
	}
	if err := validateRange(query.From, query.To); err != nil {
		return nil, err
	}

	booked := query.Booked
	if booked == nil {
		unbooked := false
		booked = &unbooked
	}
	page := query.Page
	if page.SortOrder == "" {
		page.SortOrder = "asc"
	}

	return s.store.Slots().List(ctx, repositories.SlotFilter{
		From:              query.From,
		To:                query.To,
		ExcludeProviderID: query.ExcludeProviderID,
		Booked:            booked,
		Page:              page,
	})
}

// ListProviderBindings lists one provider's own bindings, booked and unbooked
func (s *AvailabilityService) ListProviderBindings(ctx context.Context, providerID string, query BindingQuery) ([]*entities.AvailabilityBinding, error) {
	if err := validateID("provider id", providerID); err != nil {
		return nil, err
	}
	query.ProviderID = providerID
	return s.ListBindings(ctx, query)
}

// ListBindings lists bindings across providers
func (s *AvailabilityService) ListBindings(ctx context.Context, query BindingQuery) ([]*entities.AvailabilityBinding, error) {
	if query.ProviderID != "" {
		if err := validateID("provider id", query.ProviderID); err != nil {
			return nil, err
		}
	}
	if err := validateRange(query.From, query.To); err != nil {
		return nil, err
	}
	page := query.Page
	if page.SortOrder == "" {
		page.SortOrder = "asc"
	}

	return s.store.Bindings().List(ctx, repositories.BindingFilter{
		ProviderID: query.ProviderID,
		Reserved:   query.Reserved,
		From:       query.From,
		To:         query.To,
		Page:       page,
	})
}

// Unbind withdraws a provider from a slot. A reserved binding cannot be withdrawn.
func (s *AvailabilityService) Unbind(ctx context.Context, providerID, slotID string) error {
	ctx, span := observability.StartSpan(ctx, "AvailabilityService.Unbind",
		attribute.String("provider.id", providerID),
		attribute.String("slot.id", slotID),
	)
	defer span.End()

	if err := validateID("provider id", providerID); err != nil {
		return err
	}
	if err := validateID("slot id", slotID); err != nil {
		return err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	defer rollback(tx)

	binding, err := tx.LockBinding(ctx, providerID, slotID)
	if err != nil {
		return err
	}
	if binding.IsReserved {
		return apperrors.NewConflictError("slot already reserved")
	}
	if err := tx.DeleteBinding(ctx, binding.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		observability.RecordError(span, err)
		return err
	}

	log.Info().
		Str("provider_id", providerID).
		Str("slot_id", slotID).
		Msg("provider availability withdrawn")
	return nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return apperrors.NewValidationError(fmt.Sprintf("range end %s is before start %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339)))
	}
	return nil
}
