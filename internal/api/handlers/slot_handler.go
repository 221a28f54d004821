package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// SlotService defines the slot operations the handler needs
type SlotService interface {
	GenerateSlots(ctx context.Context, req services.GenerateSlotsRequest) (*services.GenerateSlotsResult, error)
	GetSlot(ctx context.Context, id string) (*entities.TimeSlot, error)
	DeleteSlot(ctx context.Context, id string) error
}

// SlotHandler handles time slot requests
type SlotHandler struct {
	service SlotService
}

// NewSlotHandler creates a new slot handler
func NewSlotHandler(service SlotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// GenerateSlots handles POST /api/slots/generate
func (h *SlotHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req services.GenerateSlotsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.GenerateSlots(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// GetSlot handles GET /api/slots/{id}
func (h *SlotHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.service.GetSlot(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, slot)
}

// DeleteSlot handles DELETE /api/slots/{id}
func (h *SlotHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := h.service.DeleteSlot(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
