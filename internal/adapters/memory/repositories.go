package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

type slotRepository struct {
	store *Store
}

func (r *slotRepository) CreateIfAbsent(_ context.Context, slot *entities.TimeSlot) (bool, error) {
	created := false
	r.store.write(func(st *state) {
		key := keyOf(slot.StartTime, slot.EndTime)
		if _, exists := st.slotKeys[key]; exists {
			return
		}
		v := *slot
		v.StartTime = slot.StartTime.UTC()
		v.EndTime = slot.EndTime.UTC()
		st.slots[v.ID] = &v
		st.slotKeys[key] = v.ID
		created = true
	})
	return created, nil
}

func (r *slotRepository) GetByID(_ context.Context, id string) (*entities.TimeSlot, error) {
	var slot *entities.TimeSlot
	r.store.read(func(st *state) {
		if s, ok := st.slots[id]; ok {
			v := *s
			slot = &v
		}
	})
	if slot == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("time slot with id %s not found", id))
	}
	return slot, nil
}

func (r *slotRepository) List(_ context.Context, filter repositories.SlotFilter) ([]*entities.TimeSlot, error) {
	page := filter.Page.Normalize([]string{"start_time", "created_at"}, "start_time")

	var slots []*entities.TimeSlot
	r.store.read(func(st *state) {
		excluded := make(map[string]bool)
		reserved := make(map[string]bool)
		for _, b := range st.bindings {
			if filter.ExcludeProviderID != "" && b.ProviderID == filter.ExcludeProviderID {
				excluded[b.SlotID] = true
			}
			if b.IsReserved {
				reserved[b.SlotID] = true
			}
		}

		for _, s := range st.slots {
			if filter.From != nil && s.StartTime.Before(*filter.From) {
				continue
			}
			if filter.To != nil && s.EndTime.After(*filter.To) {
				continue
			}
			if excluded[s.ID] {
				continue
			}
			if filter.Booked != nil && reserved[s.ID] != *filter.Booked {
				continue
			}
			v := *s
			slots = append(slots, &v)
		}
	})

	key := func(s *entities.TimeSlot) time.Time { return s.StartTime }
	if page.SortBy == "created_at" {
		key = func(s *entities.TimeSlot) time.Time { return s.CreatedAt }
	}
	sortBy(slots, page.Ascending(), key, func(s *entities.TimeSlot) string { return s.ID })
	return paginate(slots, page), nil
}

func (r *slotRepository) Delete(_ context.Context, id string) error {
	var err error
	r.store.write(func(st *state) {
		slot, ok := st.slots[id]
		if !ok {
			err = apperrors.NewNotFoundError(fmt.Sprintf("time slot with id %s not found", id))
			return
		}
		for _, b := range st.bindings {
			if b.SlotID == id {
				err = apperrors.NewConflictError(fmt.Sprintf("time slot %s is still referenced", id))
				return
			}
		}
		delete(st.slotKeys, keyOf(slot.StartTime, slot.EndTime))
		delete(st.slots, id)
	})
	return err
}

type bindingRepository struct {
	store *Store
}

func (r *bindingRepository) BulkCreate(_ context.Context, providerID string, slotIDs []string) (int, error) {
	created := 0
	var err error
	r.store.write(func(st *state) {
		for _, slotID := range slotIDs {
			if _, ok := st.slots[slotID]; !ok {
				err = apperrors.NewNotFoundError("one or more slots do not exist")
				return
			}
		}

		now := time.Now().UTC()
		for _, slotID := range slotIDs {
			if st.bindingFor(providerID, slotID) != nil {
				continue
			}
			id := uuid.NewString()
			st.bindings[id] = &entities.AvailabilityBinding{
				ID:         id,
				ProviderID: providerID,
				SlotID:     slotID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			created++
		}
	})
	return created, err
}

func (r *bindingRepository) Get(_ context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error) {
	var binding *entities.AvailabilityBinding
	r.store.read(func(st *state) {
		if b := st.bindingFor(providerID, slotID); b != nil {
			binding = cloneBinding(b)
		}
	})
	if binding == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider %s has no binding for slot %s", providerID, slotID))
	}
	return binding, nil
}

func (r *bindingRepository) List(_ context.Context, filter repositories.BindingFilter) ([]*entities.AvailabilityBinding, error) {
	page := filter.Page.Normalize([]string{"start_time", "created_at"}, "start_time")

	var bindings []*entities.AvailabilityBinding
	r.store.read(func(st *state) {
		for _, b := range st.bindings {
			slot, ok := st.slots[b.SlotID]
			if !ok {
				continue
			}
			if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
				continue
			}
			if filter.Reserved != nil && b.IsReserved != *filter.Reserved {
				continue
			}
			if filter.From != nil && slot.StartTime.Before(*filter.From) {
				continue
			}
			if filter.To != nil && slot.EndTime.After(*filter.To) {
				continue
			}
			v := cloneBinding(b)
			s := *slot
			v.Slot = &s
			bindings = append(bindings, v)
		}
	})

	key := func(b *entities.AvailabilityBinding) time.Time { return b.Slot.StartTime }
	if page.SortBy == "created_at" {
		key = func(b *entities.AvailabilityBinding) time.Time { return b.CreatedAt }
	}
	sortBy(bindings, page.Ascending(), key, func(b *entities.AvailabilityBinding) string { return b.ID })
	return paginate(bindings, page), nil
}

func (r *bindingRepository) CountBySlot(_ context.Context, slotID string) (int, error) {
	count := 0
	r.store.read(func(st *state) {
		for _, b := range st.bindings {
			if b.SlotID == slotID {
				count++
			}
		}
	})
	return count, nil
}

type bookingRepository struct {
	store *Store
}

func (r *bookingRepository) GetByID(_ context.Context, id string) (*entities.Booking, error) {
	var booking *entities.Booking
	r.store.read(func(st *state) {
		if b, ok := st.bookings[id]; ok {
			v := *b
			booking = &v
		}
	})
	if booking == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	return booking, nil
}

func (r *bookingRepository) List(_ context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	page := filter.Page.Normalize([]string{"created_at", "updated_at", "status"}, "created_at")

	var bookings []*entities.Booking
	r.store.read(func(st *state) {
		for _, b := range st.bookings {
			if filter.RequesterID != "" && b.RequesterID != filter.RequesterID {
				continue
			}
			if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			if filter.PaymentStatus != "" && b.PaymentStatus != filter.PaymentStatus {
				continue
			}
			v := *b
			bookings = append(bookings, &v)
		}
	})

	if page.SortBy == "status" {
		sortByStatus(bookings, page.Ascending())
	} else {
		key := func(b *entities.Booking) time.Time { return b.CreatedAt }
		if page.SortBy == "updated_at" {
			key = func(b *entities.Booking) time.Time { return b.UpdatedAt }
		}
		sortBy(bookings, page.Ascending(), key, func(b *entities.Booking) string { return b.ID })
	}
	return paginate(bookings, page), nil
}

func sortByStatus(bookings []*entities.Booking, asc bool) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Status != bookings[j].Status {
			return (bookings[i].Status < bookings[j].Status) == asc
		}
		return bookings[i].ID < bookings[j].ID
	})
}

func (r *bookingRepository) ListStaleUnpaid(_ context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error) {
	var bookings []*entities.Booking
	r.store.read(func(st *state) {
		for _, b := range st.bookings {
			if b.IsStaleUnpaid(cutoff) {
				v := *b
				bookings = append(bookings, &v)
			}
		}
	})

	sortBy(bookings, true, func(b *entities.Booking) time.Time { return b.CreatedAt }, func(b *entities.Booking) string { return b.ID })
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (r *bookingRepository) GetPaymentIntent(_ context.Context, bookingID string) (*entities.PaymentIntent, error) {
	var payment *entities.PaymentIntent
	r.store.read(func(st *state) {
		if p := st.paymentFor(bookingID); p != nil {
			payment = clonePayment(p)
		}
	})
	if payment == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment intent for booking %s not found", bookingID))
	}
	return payment, nil
}

func (r *bookingRepository) GetPaymentIntentByTransaction(_ context.Context, transactionID string) (*entities.PaymentIntent, error) {
	var payment *entities.PaymentIntent
	r.store.read(func(st *state) {
		for _, p := range st.payments {
			if p.TransactionID == transactionID {
				payment = clonePayment(p)
				return
			}
		}
	})
	if payment == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment intent with transaction id %s not found", transactionID))
	}
	return payment, nil
}

func (r *bookingRepository) Summarize(_ context.Context, filter repositories.SummaryFilter) (*entities.BookingSummary, error) {
	summary := entities.NewBookingSummary()
	r.store.read(func(st *state) {
		for _, b := range st.bookings {
			if filter.RequesterID != "" && b.RequesterID != filter.RequesterID {
				continue
			}
			if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
				continue
			}
			summary.AddStatus(b.Status, 1)
			if p := st.paymentFor(b.ID); p != nil && p.Status == entities.PaymentIntentStatusPaid {
				summary.AddPaid(p.Currency, 1, p.Amount)
			}
		}
	})
	return summary, nil
}
