package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/slotbooking/internal/application/services"
)

// Reclaimer runs a reclamation sweep on demand
type Reclaimer interface {
	RunOnce(ctx context.Context) (*services.ReclaimReport, error)
}

// ReclaimHandler lets administrators trigger a sweep outside the schedule
type ReclaimHandler struct {
	reclaimer Reclaimer
}

// NewReclaimHandler creates a new reclaim handler
func NewReclaimHandler(reclaimer Reclaimer) *ReclaimHandler {
	return &ReclaimHandler{reclaimer: reclaimer}
}

// Run handles POST /api/admin/reclaim
func (h *ReclaimHandler) Run(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	report, err := h.reclaimer.RunOnce(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
