package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/services"
)

type DashboardHandler struct {
	svc    *services.DashboardService
	logger *zap.Logger
}

func NewDashboardHandler(svc *services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// Get summarises the caller's emissions against their sinks.
// Accepts optional startDate and endDate (YYYY-MM-DD).
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	out, err := h.svc.Summary(r.Context(), s.UserID, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
