package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// BookingService defines the booking operations the handler needs
type BookingService interface {
	CreateBooking(ctx context.Context, caller entities.Identity, req services.CreateBookingRequest) (*entities.Booking, error)
	GetBooking(ctx context.Context, caller entities.Identity, id string) (*entities.Booking, error)
	ListBookings(ctx context.Context, caller entities.Identity, query services.BookingQuery) ([]*entities.Booking, error)
	Summary(ctx context.Context, caller entities.Identity) (*entities.BookingSummary, error)
}

// StatusService defines the status transition the handler needs
type StatusService interface {
	SetStatus(ctx context.Context, caller entities.Identity, bookingID string, status entities.BookingStatus) (*entities.Booking, error)
}

// BookingHandler handles booking requests
type BookingHandler struct {
	bookings BookingService
	status   StatusService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingService, status StatusService) *BookingHandler {
	return &BookingHandler{bookings: bookings, status: status}
}

type setStatusRequest struct {
	Status entities.BookingStatus `json:"status"`
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req services.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), caller, req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, booking)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}

// ListBookings handles GET /api/bookings?status=&payment_status=
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	query := services.BookingQuery{
		Status:        entities.BookingStatus(r.URL.Query().Get("status")),
		PaymentStatus: entities.PaymentStatus(r.URL.Query().Get("payment_status")),
		Page:          page,
	}

	bookings, err := h.bookings.ListBookings(r.Context(), caller, query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// Summary handles GET /api/bookings/summary
func (h *BookingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	summary, err := h.bookings.Summary(r.Context(), caller)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// SetStatus handles PATCH /api/bookings/{id}/status
func (h *BookingHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	booking, err := h.status.SetStatus(r.Context(), caller, r.PathValue("id"), req.Status)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, booking)
}
