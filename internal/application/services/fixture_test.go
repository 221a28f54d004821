package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/slotbooking/internal/adapters/events"
	"github.com/zatekoja/slotbooking/internal/adapters/memory"
	"github.com/zatekoja/slotbooking/internal/adapters/payments"
	"github.com/zatekoja/slotbooking/internal/adapters/pricing"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/pkg/config"
)

// fakeClock is advanced by tests to move every service through time together
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func ptr[T any](v T) *T { return &v }

func requester(id string) entities.Identity {
	return entities.Identity{ID: id, Email: "p@example.com", Role: entities.RoleRequester}
}

func provider(id string) entities.Identity {
	return entities.Identity{ID: id, Role: entities.RoleProvider}
}

func admin() entities.Identity {
	return entities.Identity{ID: uuid.NewString(), Role: entities.RoleAdmin}
}

type fixture struct {
	store        *memory.Store
	bus          *events.LocalEventBus
	clock        *fakeClock
	slots        *SlotService
	availability *AvailabilityService
	bookings     *BookingService
	status       *StatusService
	payments     *PaymentService
	reclaimer    *Reclaimer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })
	clock := &fakeClock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}

	bookingCfg := &config.BookingConfig{AppointmentFee: 5000, Currency: "USD"}
	paymentCfg := &config.PaymentConfig{SuccessURL: "http://localhost:3000/payment/success"}

	f := &fixture{
		store:        store,
		bus:          bus,
		clock:        clock,
		slots:        NewSlotService(store, 30*time.Minute, time.UTC, nil),
		availability: NewAvailabilityService(store),
		bookings:     NewBookingService(store, pricing.NewStaticFeeSchedule(bookingCfg, nil), bus, nil),
		status:       NewStatusService(store, bus),
		payments:     NewPaymentService(store, payments.NewManualGateway(paymentCfg), bus, nil),
		reclaimer: NewReclaimer(store, nil, bus, nil, ReclaimerConfig{
			UnpaidExpiry: 30 * time.Minute,
			BatchSize:    100,
		}),
	}
	f.slots.now = clock.Now
	f.bookings.now = clock.Now
	f.status.now = clock.Now
	f.payments.now = clock.Now
	f.reclaimer.now = clock.Now
	return f
}

// generate creates the 2024-01-01 09:00-10:00 slots
func (f *fixture) generate(t *testing.T) []*entities.TimeSlot {
	t.Helper()
	res, err := f.slots.GenerateSlots(context.Background(), GenerateSlotsRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-01",
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	return res.Created
}

// book binds a provider to both generated slots and books the first one
func (f *fixture) book(t *testing.T) (providerID, requesterID string, booking *entities.Booking) {
	t.Helper()
	slots := f.generate(t)
	providerID = uuid.NewString()
	requesterID = uuid.NewString()

	_, err := f.availability.Bind(context.Background(), providerID, []string{slots[0].ID, slots[1].ID})
	require.NoError(t, err)

	booking, err = f.bookings.CreateBooking(context.Background(), requester(requesterID), CreateBookingRequest{
		ProviderID: providerID,
		SlotID:     slots[0].ID,
	})
	require.NoError(t, err)
	return providerID, requesterID, booking
}

func bookingFilterAll() repositories.BookingFilter {
	return repositories.BookingFilter{Page: repositories.Page{Limit: repositories.MaxPageLimit}}
}
