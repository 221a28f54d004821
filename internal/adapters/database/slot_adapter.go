package database

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

var slotSortColumns = map[string]string{
	"start_time": "s.start_time",
	"created_at": "s.created_at",
}

// SlotAdapter implements the SlotRepository interface
type SlotAdapter struct {
	client *postgres.Client
}

// CreateIfAbsent inserts slot unless the (start_time, end_time) pair already exists
func (a *SlotAdapter) CreateIfAbsent(ctx context.Context, slot *entities.TimeSlot) (bool, error) {
	query, args, err := dialect.Insert(tableSlots).
		Rows(goqu.Record{
			"id":         slot.ID,
			"start_time": slot.StartTime.UTC(),
			"end_time":   slot.EndTime.UTC(),
			"created_at": slot.CreatedAt,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build insert query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageError("failed to create time slot", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewTransientError("failed to get rows affected", err)
	}
	return n == 1, nil
}

// GetByID retrieves a time slot by ID
func (a *SlotAdapter) GetByID(ctx context.Context, id string) (*entities.TimeSlot, error) {
	query, args, err := dialect.From(tableSlots).
		Select(slotColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot := &entities.TimeSlot{}
	if err := a.client.DB().GetContext(ctx, slot, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("time slot with id %s not found", id), err)
	}
	return slot, nil
}

// List retrieves slots matching filter
func (a *SlotAdapter) List(ctx context.Context, filter repositories.SlotFilter) ([]*entities.TimeSlot, error) {
	page := filter.Page.Normalize([]string{"start_time", "created_at"}, "start_time")

	ds := dialect.From(goqu.T(tableSlots).As("s")).
		Select(goqu.I("s.id"), goqu.I("s.start_time"), goqu.I("s.end_time"), goqu.I("s.created_at"))

	if filter.From != nil {
		ds = ds.Where(goqu.I("s.start_time").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.I("s.end_time").Lte(filter.To.UTC()))
	}
	if filter.ExcludeProviderID != "" {
		bound := dialect.From(tableBindings).
			Select("slot_id").
			Where(goqu.Ex{"provider_id": filter.ExcludeProviderID})
		ds = ds.Where(goqu.I("s.id").NotIn(bound))
	}
	if filter.Booked != nil {
		reserved := dialect.From(tableBindings).
			Select("slot_id").
			Where(goqu.Ex{"is_reserved": true})
		if *filter.Booked {
			ds = ds.Where(goqu.I("s.id").In(reserved))
		} else {
			ds = ds.Where(goqu.I("s.id").NotIn(reserved))
		}
	}

	ds = orderBy(ds, slotSortColumns[page.SortBy], page)
	query, args, err := paginate(ds, page).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slots := []*entities.TimeSlot{}
	if err := a.client.DB().SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, storageError("failed to list time slots", err)
	}
	return slots, nil
}

// Delete removes a slot. A slot still referenced by a binding violates the
// foreign key and surfaces as Conflict.
func (a *SlotAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := dialect.Delete(tableSlots).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return storageError(fmt.Sprintf("time slot %s is still referenced", id), err)
	}
	return expectAffected(result, fmt.Sprintf("time slot with id %s not found", id))
}
