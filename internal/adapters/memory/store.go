// Package memory provides an in-process repositories.Store. Transactions are
// serialized: BeginTx takes the store's write lock and holds it until Commit or
// Rollback, so every check-and-set inside a Tx is atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
)

type slotKey struct {
	start int64
	end   int64
}

type state struct {
	slots    map[string]*entities.TimeSlot
	slotKeys map[slotKey]string
	bindings map[string]*entities.AvailabilityBinding
	bookings map[string]*entities.Booking
	payments map[string]*entities.PaymentIntent
}

func newState() *state {
	return &state{
		slots:    make(map[string]*entities.TimeSlot),
		slotKeys: make(map[slotKey]string),
		bindings: make(map[string]*entities.AvailabilityBinding),
		bookings: make(map[string]*entities.Booking),
		payments: make(map[string]*entities.PaymentIntent),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, slot := range s.slots {
		v := *slot
		c.slots[id] = &v
	}
	for k, id := range s.slotKeys {
		c.slotKeys[k] = id
	}
	for id, b := range s.bindings {
		c.bindings[id] = cloneBinding(b)
	}
	for id, b := range s.bookings {
		v := *b
		c.bookings[id] = &v
	}
	for id, p := range s.payments {
		c.payments[id] = clonePayment(p)
	}
	return c
}

func (s *state) bindingFor(providerID, slotID string) *entities.AvailabilityBinding {
	for _, b := range s.bindings {
		if b.ProviderID == providerID && b.SlotID == slotID {
			return b
		}
	}
	return nil
}

func (s *state) paymentFor(bookingID string) *entities.PaymentIntent {
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			return p
		}
	}
	return nil
}

func cloneBinding(b *entities.AvailabilityBinding) *entities.AvailabilityBinding {
	v := *b
	if b.BookingID != nil {
		id := *b.BookingID
		v.BookingID = &id
	}
	if b.Slot != nil {
		slot := *b.Slot
		v.Slot = &slot
	}
	return &v
}

func clonePayment(p *entities.PaymentIntent) *entities.PaymentIntent {
	v := *p
	if p.GatewayData != nil {
		v.GatewayData = append([]byte(nil), p.GatewayData...)
	}
	return &v
}

func keyOf(start, end time.Time) slotKey {
	return slotKey{start: start.UTC().UnixNano(), end: end.UTC().UnixNano()}
}

// Store is an in-memory implementation of repositories.Store
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ repositories.Store = (*Store)(nil)

// Slots returns the slot repository
func (s *Store) Slots() repositories.SlotRepository { return &slotRepository{store: s} }

// Bindings returns the binding repository
func (s *Store) Bindings() repositories.BindingRepository { return &bindingRepository{store: s} }

// Bookings returns the booking repository
func (s *Store) Bookings() repositories.BookingRepository { return &bookingRepository{store: s} }

// BeginTx blocks until no other transaction is open, then starts one over a
// private copy of the data.
func (s *Store) BeginTx(ctx context.Context) (repositories.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{store: s, state: s.state.clone()}, nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *Store) write(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// paginate applies the normalized page to an already sorted slice
func paginate[T any](items []T, page repositories.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// sortBy orders items by key, ascending or descending, breaking ties on id
func sortBy[T any](items []T, asc bool, key func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := key(items[i]), key(items[j])
		if !ki.Equal(kj) {
			if asc {
				return ki.Before(kj)
			}
			return ki.After(kj)
		}
		return id(items[i]) < id(items[j])
	})
}
