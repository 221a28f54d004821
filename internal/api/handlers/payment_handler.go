package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// PaymentService defines the payment operations the handler needs
type PaymentService interface {
	InitiatePayment(ctx context.Context, caller entities.Identity, bookingID string) (*providers.PaymentSession, error)
	ConfirmPayment(ctx context.Context, payload services.PaymentCallback) (*entities.PaymentIntent, error)
	MarkPaid(ctx context.Context, transactionID string, metadata json.RawMessage) (*entities.PaymentIntent, error)
}

// PaymentHandler handles payment requests
type PaymentHandler struct {
	service PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type markPaidRequest struct {
	TransactionID string          `json:"transaction_id"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// InitiatePayment handles POST /api/bookings/{id}/payment
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	session, err := h.service.InitiatePayment(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// Callback handles GET /api/payments/callback, where the gateway redirects the payer
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	payload := services.PaymentCallback{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	if len(payload) == 0 {
		respondWithError(w, http.StatusBadRequest, "callback payload is empty")
		return
	}

	payment, err := h.service.ConfirmPayment(r.Context(), payload)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payment)
}

// MarkPaid handles POST /api/payments/mark-paid for payments settled out of band
func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req markPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if req.TransactionID == "" {
		respondWithAppError(w, r, apperrors.NewValidationError("transaction_id is required"))
		return
	}

	payment, err := h.service.MarkPaid(r.Context(), req.TransactionID, req.Metadata)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payment)
}
