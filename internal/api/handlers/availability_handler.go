package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
)

// AvailabilityService defines the binding operations the handler needs
type AvailabilityService interface {
	Bind(ctx context.Context, providerID string, slotIDs []string) (*services.BindResult, error)
	ListOpenSlots(ctx context.Context, query services.OpenSlotQuery) ([]*entities.TimeSlot, error)
	ListProviderBindings(ctx context.Context, providerID string, query services.BindingQuery) ([]*entities.AvailabilityBinding, error)
	ListBindings(ctx context.Context, query services.BindingQuery) ([]*entities.AvailabilityBinding, error)
	Unbind(ctx context.Context, providerID, slotID string) error
}

// AvailabilityHandler handles provider availability requests
type AvailabilityHandler struct {
	service AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type bindRequest struct {
	SlotIDs []string `json:"slot_ids"`
}

// ListOpenSlots handles GET /api/slots?from=&to=&booked=&exclude_provider_id=
func (h *AvailabilityHandler) ListOpenSlots(w http.ResponseWriter, r *http.Request) {
	query, err := openSlotQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	slots, err := h.service.ListOpenSlots(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
		"count": len(slots),
		"page":  query.Page.Page,
	})
}

// Bind handles POST /api/providers/{providerId}/bindings
func (h *AvailabilityHandler) Bind(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerId")
	if _, err := requireProviderOrAdmin(r, providerID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var req bindRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Bind(r.Context(), providerID, req.SlotIDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

// ListProviderBindings handles GET /api/providers/{providerId}/bindings
func (h *AvailabilityHandler) ListProviderBindings(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerId")
	if _, err := requireProviderOrAdmin(r, providerID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query, err := bindingQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	bindings, err := h.service.ListProviderBindings(r.Context(), providerID, query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bindings": bindings,
		"count":    len(bindings),
	})
}

// ListBindings handles GET /api/bindings for administrators
func (h *AvailabilityHandler) ListBindings(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query, err := bindingQuery(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	query.ProviderID = r.URL.Query().Get("provider_id")

	bindings, err := h.service.ListBindings(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bindings": bindings,
		"count":    len(bindings),
	})
}

// Unbind handles DELETE /api/providers/{providerId}/bindings/{slotId}
func (h *AvailabilityHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerId")
	if _, err := requireProviderOrAdmin(r, providerID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.service.Unbind(r.Context(), providerID, r.PathValue("slotId")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func openSlotQuery(r *http.Request) (services.OpenSlotQuery, error) {
	var (
		query services.OpenSlotQuery
		err   error
	)
	if query.Page, err = parsePage(r); err != nil {
		return query, err
	}
	if query.From, err = parseTime(r, "from"); err != nil {
		return query, err
	}
	if query.To, err = parseTime(r, "to"); err != nil {
		return query, err
	}
	if query.Booked, err = parseBool(r, "booked"); err != nil {
		return query, err
	}
	query.ExcludeProviderID = r.URL.Query().Get("exclude_provider_id")
	return query, nil
}

func bindingQuery(r *http.Request) (services.BindingQuery, error) {
	var (
		query services.BindingQuery
		err   error
	)
	if query.Page, err = parsePage(r); err != nil {
		return query, err
	}
	if query.From, err = parseTime(r, "from"); err != nil {
		return query, err
	}
	if query.To, err = parseTime(r, "to"); err != nil {
		return query, err
	}
	if query.Reserved, err = parseBool(r, "reserved"); err != nil {
		return query, err
	}
	return query, nil
}
