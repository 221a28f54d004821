package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/slotbooking/internal/adapters/events"
	"github.com/zatekoja/slotbooking/internal/adapters/memory"
	"github.com/zatekoja/slotbooking/internal/adapters/payments"
	"github.com/zatekoja/slotbooking/internal/adapters/pricing"
	"github.com/zatekoja/slotbooking/internal/api/handlers"
	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/pkg/config"
)

type testEnv struct {
	bus          *events.LocalEventBus
	slots        *handlers.SlotHandler
	availability *handlers.AvailabilityHandler
	bookings     *handlers.BookingHandler
	payments     *handlers.PaymentHandler
	reclaim      *handlers.ReclaimHandler
	sse          *handlers.SSEHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	bookingCfg := &config.BookingConfig{AppointmentFee: 2500, Currency: "usd"}
	paymentCfg := &config.PaymentConfig{SuccessURL: "http://localhost:3000/payment/success"}

	bookingSvc := services.NewBookingService(store, pricing.NewStaticFeeSchedule(bookingCfg, nil), bus, nil)
	return &testEnv{
		bus:          bus,
		slots:        handlers.NewSlotHandler(services.NewSlotService(store, 30*time.Minute, time.UTC, nil)),
		availability: handlers.NewAvailabilityHandler(services.NewAvailabilityService(store)),
		bookings:     handlers.NewBookingHandler(bookingSvc, services.NewStatusService(store, bus)),
		payments:     handlers.NewPaymentHandler(services.NewPaymentService(store, payments.NewManualGateway(paymentCfg), bus, nil)),
		reclaim:      handlers.NewReclaimHandler(services.NewReclaimer(store, nil, bus, nil, services.ReclaimerConfig{})),
		sse:          handlers.NewSSEHandler(bus),
	}
}

func newRequest(method, target string, body interface{}, caller *entities.Identity) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(handlers.HeaderUserID, caller.ID)
		req.Header.Set(handlers.HeaderUserEmail, caller.Email)
		req.Header.Set(handlers.HeaderUserRole, string(caller.Role))
	}
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var adminCaller = &entities.Identity{ID: uuid.NewString(), Role: entities.RoleAdmin}

// seed generates the 09:00-10:00 slots and binds a new provider to both
func (e *testEnv) seed(t *testing.T) (providerID string, slots []*entities.TimeSlot) {
	t.Helper()
	w := httptest.NewRecorder()
	e.slots.GenerateSlots(w, newRequest(http.MethodPost, "/api/slots/generate", services.GenerateSlotsRequest{
		StartDate: "2024-01-01", EndDate: "2024-01-01", StartTime: "09:00", EndTime: "10:00",
	}, adminCaller))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	slots = decode[services.GenerateSlotsResult](t, w).Created
	require.Len(t, slots, 2)

	providerID = uuid.NewString()
	w = httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/providers/"+providerID+"/bindings", map[string][]string{
		"slot_ids": {slots[0].ID, slots[1].ID},
	}, &entities.Identity{ID: providerID, Role: entities.RoleProvider})
	req.SetPathValue("providerId", providerID)
	e.availability.Bind(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return providerID, slots
}

func TestSlotHandler_GenerateSlots(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires an administrator", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.slots.GenerateSlots(w, newRequest(http.MethodPost, "/api/slots/generate", services.GenerateSlotsRequest{}, &entities.Identity{ID: uuid.NewString(), Role: entities.RoleProvider}))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("requires an identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.slots.GenerateSlots(w, newRequest(http.MethodPost, "/api/slots/generate", services.GenerateSlotsRequest{}, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an inverted window", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.slots.GenerateSlots(w, newRequest(http.MethodPost, "/api/slots/generate", services.GenerateSlotsRequest{
			StartDate: "2024-01-01", EndDate: "2024-01-01", StartTime: "10:00", EndTime: "09:00",
		}, adminCaller))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[map[string]string](t, w)["error"], "must be after")
	})

	t.Run("missing slot", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := newRequest(http.MethodGet, "/api/slots/x", nil, nil)
		req.SetPathValue("id", uuid.NewString())
		env.slots.GetSlot(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBookingHandler_BookingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	providerID, slots := env.seed(t)
	requester := &entities.Identity{ID: uuid.NewString(), Email: "p@example.com", Role: entities.RoleRequester}

	w := httptest.NewRecorder()
	env.bookings.CreateBooking(w, newRequest(http.MethodPost, "/api/bookings", services.CreateBookingRequest{
		ProviderID: providerID, SlotID: slots[0].ID,
	}, requester))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[entities.Booking](t, w)
	assert.Equal(t, entities.PaymentStatusUnpaid, booking.PaymentStatus)

	// A second requester loses the slot
	w = httptest.NewRecorder()
	env.bookings.CreateBooking(w, newRequest(http.MethodPost, "/api/bookings", services.CreateBookingRequest{
		ProviderID: providerID, SlotID: slots[0].ID,
	}, &entities.Identity{ID: uuid.NewString(), Role: entities.RoleRequester}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot already reserved", decode[map[string]string](t, w)["error"])

	w = httptest.NewRecorder()
	env.availability.ListOpenSlots(w, newRequest(http.MethodGet, "/api/slots", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	open := decode[struct {
		Slots []entities.TimeSlot `json:"slots"`
	}](t, w)
	require.Len(t, open.Slots, 1)
	assert.Equal(t, slots[1].ID, open.Slots[0].ID)

	// Status: another provider is forbidden, the owner succeeds
	w = httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/api/bookings/x/status", map[string]string{"status": "IN_PROGRESS"},
		&entities.Identity{ID: uuid.NewString(), Role: entities.RoleProvider})
	req.SetPathValue("id", booking.ID)
	env.bookings.SetStatus(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = newRequest(http.MethodPatch, "/api/bookings/x/status", map[string]string{"status": "IN_PROGRESS"},
		&entities.Identity{ID: providerID, Role: entities.RoleProvider})
	req.SetPathValue("id", booking.ID)
	env.bookings.SetStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.BookingStatusInProgress, decode[entities.Booking](t, w).Status)

	// Payment: initiate, then only an administrator can settle a manual payment
	w = httptest.NewRecorder()
	req = newRequest(http.MethodPost, "/api/bookings/x/payment", nil, requester)
	req.SetPathValue("id", booking.ID)
	env.payments.InitiatePayment(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session := decode[map[string]string](t, w)
	assert.Contains(t, session["redirect_url"], "transaction_id="+session["transaction_id"])

	w = httptest.NewRecorder()
	env.payments.Callback(w, newRequest(http.MethodGet, "/api/payments/callback?status=paid&transaction_id="+session["transaction_id"], nil, nil))
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	env.bookings.ListBookings(w, newRequest(http.MethodGet, "/api/bookings?payment_status=PAID", nil, requester))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, w)["count"])

	w = httptest.NewRecorder()
	env.payments.MarkPaid(w, newRequest(http.MethodPost, "/api/payments/mark-paid", map[string]string{"transaction_id": session["transaction_id"]}, adminCaller))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.PaymentIntentStatusPaid, decode[entities.PaymentIntent](t, w).Status)

	w = httptest.NewRecorder()
	env.bookings.ListBookings(w, newRequest(http.MethodGet, "/api/bookings?payment_status=PAID", nil, requester))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["count"])
}

func TestBookingHandler_Summary(t *testing.T) {
	env := newTestEnv(t)
	providerID, slots := env.seed(t)
	requester := &entities.Identity{ID: uuid.NewString(), Role: entities.RoleRequester}

	w := httptest.NewRecorder()
	env.bookings.CreateBooking(w, newRequest(http.MethodPost, "/api/bookings", services.CreateBookingRequest{
		ProviderID: providerID, SlotID: slots[0].ID,
	}, requester))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	env.bookings.ListBookings(w, newRequest(http.MethodGet, "/api/bookings?page=9223372036854775807&limit=100", nil, requester))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, w)["count"])

	w = httptest.NewRecorder()
	env.bookings.Summary(w, newRequest(http.MethodGet, "/api/bookings/summary", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	env.bookings.Summary(w, newRequest(http.MethodGet, "/api/bookings/summary", nil, adminCaller))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[entities.BookingSummary](t, w)
	assert.Equal(t, int64(1), summary.BookingCount)
	assert.Equal(t, int64(1), summary.ByStatus[entities.BookingStatusPending])
	assert.Zero(t, summary.PaidCount)

	w = httptest.NewRecorder()
	env.bookings.Summary(w, newRequest(http.MethodGet, "/api/bookings/summary", nil, requester))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), body["booking_count"])
	assert.NotContains(t, body, "revenue")
}

func TestAvailabilityHandler_Unbind(t *testing.T) {
	env := newTestEnv(t)
	providerID, slots := env.seed(t)
	owner := &entities.Identity{ID: providerID, Role: entities.RoleProvider}

	w := httptest.NewRecorder()
	req := newRequest(http.MethodDelete, "/api/providers/x/bindings/y", nil, &entities.Identity{ID: uuid.NewString(), Role: entities.RoleProvider})
	req.SetPathValue("providerId", providerID)
	req.SetPathValue("slotId", slots[0].ID)
	env.availability.Unbind(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = newRequest(http.MethodDelete, "/api/providers/x/bindings/y", nil, owner)
	req.SetPathValue("providerId", providerID)
	req.SetPathValue("slotId", slots[0].ID)
	env.availability.Unbind(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req = newRequest(http.MethodGet, "/api/providers/x/bindings?reserved=false", nil, owner)
	req.SetPathValue("providerId", providerID)
	env.availability.ListProviderBindings(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["count"])

	w = httptest.NewRecorder()
	req = newRequest(http.MethodGet, "/api/providers/x/bindings?reserved=maybe", nil, owner)
	req.SetPathValue("providerId", providerID)
	env.availability.ListProviderBindings(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_MarkPaidRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.payments.MarkPaid(w, newRequest(http.MethodPost, "/api/payments/mark-paid", map[string]string{"transaction_id": "SB-1"},
		&entities.Identity{ID: uuid.NewString(), Role: entities.RoleRequester}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	env.payments.MarkPaid(w, newRequest(http.MethodPost, "/api/payments/mark-paid", map[string]string{"transaction_id": "SB-1"}, adminCaller))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReclaimHandler_Run(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.reclaim.Run(w, newRequest(http.MethodPost, "/api/admin/reclaim", nil, adminCaller))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[services.ReclaimReport](t, w)
	assert.Zero(t, report.Reclaimed)
}

func TestSSEHandler_StreamProviderEvents(t *testing.T) {
	env := newTestEnv(t)
	providerID, slots := env.seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(http.MethodGet, "/api/providers/x/events", nil, &entities.Identity{ID: providerID, Role: entities.RoleProvider})
	req.SetPathValue("providerId", providerID)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.sse.StreamProviderEvents(w, req)
	}()

	require.Eventually(t, func() bool { return env.sse.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	bw := httptest.NewRecorder()
	env.bookings.CreateBooking(bw, newRequest(http.MethodPost, "/api/bookings", services.CreateBookingRequest{
		ProviderID: providerID, SlotID: slots[1].ID,
	}, &entities.Identity{ID: uuid.NewString(), Role: entities.RoleRequester}))
	require.Equal(t, http.StatusCreated, bw.Code)

	// Let the stream forward the event before disconnecting
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: booking.created")
	assert.Equal(t, 0, env.sse.GetClientCount())

	t.Run("other providers cannot subscribe", func(t *testing.T) {
		req := newRequest(http.MethodGet, "/api/providers/x/events", nil, &entities.Identity{ID: uuid.NewString(), Role: entities.RoleProvider})
		req.SetPathValue("providerId", providerID)
		w := httptest.NewRecorder()
		env.sse.StreamProviderEvents(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
