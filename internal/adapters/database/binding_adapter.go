package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

var bindingSortColumns = map[string]string{
	"start_time": "t.start_time",
	"created_at": "b.created_at",
}

// bindingRow is a binding joined with its slot
type bindingRow struct {
	entities.AvailabilityBinding
	SlotStartTime time.Time `db:"slot_start_time"`
	SlotEndTime   time.Time `db:"slot_end_time"`
	SlotCreatedAt time.Time `db:"slot_created_at"`
}

func (r *bindingRow) toEntity() *entities.AvailabilityBinding {
	binding := r.AvailabilityBinding
	binding.Slot = &entities.TimeSlot{
		ID:        binding.SlotID,
		StartTime: r.SlotStartTime,
		EndTime:   r.SlotEndTime,
		CreatedAt: r.SlotCreatedAt,
	}
	return &binding
}

// BindingAdapter implements the BindingRepository interface
type BindingAdapter struct {
	client *postgres.Client
}

// BulkCreate binds providerID to each slot in one statement. Existing
// (provider_id, slot_id) pairs are skipped by ON CONFLICT DO NOTHING.
func (a *BindingAdapter) BulkCreate(ctx context.Context, providerID string, slotIDs []string) (int, error) {
	if len(slotIDs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([]interface{}, 0, len(slotIDs))
	for _, slotID := range slotIDs {
		rows = append(rows, goqu.Record{
			"id":          uuid.NewString(),
			"provider_id": providerID,
			"slot_id":     slotID,
			"is_reserved": false,
			"created_at":  now,
			"updated_at":  now,
		})
	}

	query, args, err := dialect.Insert(tableBindings).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build insert query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if hasPQCode(err, pqForeignKeyViolation) {
			return 0, apperrors.NewNotFoundError("one or more slots do not exist")
		}
		return 0, storageError("failed to create bindings", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewTransientError("failed to get rows affected", err)
	}
	return int(n), nil
}

// Get retrieves the provider's binding for a slot
func (a *BindingAdapter) Get(ctx context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error) {
	query, args, err := dialect.From(tableBindings).
		Select(bindingColumns...).
		Where(goqu.Ex{"provider_id": providerID, "slot_id": slotID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	binding := &entities.AvailabilityBinding{}
	if err := a.client.DB().GetContext(ctx, binding, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("provider %s has no binding for slot %s", providerID, slotID), err)
	}
	return binding, nil
}

// List retrieves bindings matching filter, joined with their slots
func (a *BindingAdapter) List(ctx context.Context, filter repositories.BindingFilter) ([]*entities.AvailabilityBinding, error) {
	page := filter.Page.Normalize([]string{"start_time", "created_at"}, "start_time")

	ds := dialect.From(goqu.T(tableBindings).As("b")).
		Join(goqu.T(tableSlots).As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("b.slot_id")))).
		Select(
			goqu.I("b.id"), goqu.I("b.provider_id"), goqu.I("b.slot_id"), goqu.I("b.is_reserved"),
			goqu.I("b.booking_id"), goqu.I("b.created_at"), goqu.I("b.updated_at"),
			goqu.I("t.start_time").As("slot_start_time"),
			goqu.I("t.end_time").As("slot_end_time"),
			goqu.I("t.created_at").As("slot_created_at"),
		)

	if filter.ProviderID != "" {
		ds = ds.Where(goqu.I("b.provider_id").Eq(filter.ProviderID))
	}
	if filter.Reserved != nil {
		ds = ds.Where(goqu.I("b.is_reserved").Eq(*filter.Reserved))
	}
	if filter.From != nil {
		ds = ds.Where(goqu.I("t.start_time").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.I("t.end_time").Lte(filter.To.UTC()))
	}

	ds = orderBy(ds, bindingSortColumns[page.SortBy], page)
	query, args, err := paginate(ds, page).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []bindingRow
	if err := a.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageError("failed to list bindings", err)
	}

	bindings := make([]*entities.AvailabilityBinding, 0, len(rows))
	for i := range rows {
		bindings = append(bindings, rows[i].toEntity())
	}
	return bindings, nil
}

// CountBySlot returns how many providers are bound to a slot
func (a *BindingAdapter) CountBySlot(ctx context.Context, slotID string) (int, error) {
	query, args, err := dialect.From(tableBindings).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"slot_id": slotID}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.client.DB().GetContext(ctx, &count, query, args...); err != nil {
		return 0, storageError("failed to count bindings", err)
	}
	return count, nil
}
