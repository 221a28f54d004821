package routes

import (
	"net/http"

	"github.com/zatekoja/slotbooking/internal/api/handlers"
	"github.com/zatekoja/slotbooking/internal/api/middleware"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
)

// Handlers groups every route handler
type Handlers struct {
	Slots        *handlers.SlotHandler
	Availability *handlers.AvailabilityHandler
	Bookings     *handlers.BookingHandler
	Payments     *handlers.PaymentHandler
	Reclaim      *handlers.ReclaimHandler
	Events       *handlers.SSEHandler
}

// Router holds all route handlers
type Router struct {
	mux            *http.ServeMux
	handlers       Handlers
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(h Handlers, allowedOrigins []string, metrics *observability.Metrics) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		handlers:       h,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Slot endpoints
	r.mux.HandleFunc("POST /api/slots/generate", r.handlers.Slots.GenerateSlots)
	r.mux.HandleFunc("GET /api/slots", r.handlers.Availability.ListOpenSlots)
	r.mux.HandleFunc("GET /api/slots/{id}", r.handlers.Slots.GetSlot)
	r.mux.HandleFunc("DELETE /api/slots/{id}", r.handlers.Slots.DeleteSlot)

	// Provider availability endpoints
	r.mux.HandleFunc("POST /api/providers/{providerId}/bindings", r.handlers.Availability.Bind)
	r.mux.HandleFunc("GET /api/providers/{providerId}/bindings", r.handlers.Availability.ListProviderBindings)
	r.mux.HandleFunc("DELETE /api/providers/{providerId}/bindings/{slotId}", r.handlers.Availability.Unbind)
	r.mux.HandleFunc("GET /api/bindings", r.handlers.Availability.ListBindings)

	// Booking endpoints
	r.mux.HandleFunc("POST /api/bookings", r.handlers.Bookings.CreateBooking)
	r.mux.HandleFunc("GET /api/bookings", r.handlers.Bookings.ListBookings)
	r.mux.HandleFunc("GET /api/bookings/summary", r.handlers.Bookings.Summary)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.handlers.Bookings.GetBooking)
	r.mux.HandleFunc("PATCH /api/bookings/{id}/status", r.handlers.Bookings.SetStatus)

	// Payment endpoints
	r.mux.HandleFunc("POST /api/bookings/{id}/payment", r.handlers.Payments.InitiatePayment)
	r.mux.HandleFunc("GET /api/payments/callback", r.handlers.Payments.Callback)
	r.mux.HandleFunc("POST /api/payments/mark-paid", r.handlers.Payments.MarkPaid)

	// Admin endpoints
	if r.handlers.Reclaim != nil {
		r.mux.HandleFunc("POST /api/admin/reclaim", r.handlers.Reclaim.Run)
	}

	// Provider event stream
	if r.handlers.Events != nil {
		r.mux.HandleFunc("GET /api/providers/{providerId}/events", r.handlers.Events.StreamProviderEvents)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
