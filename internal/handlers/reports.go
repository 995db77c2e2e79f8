package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/services"
)

type ReportHandler struct {
	svc    *services.ReportService
	logger *zap.Logger
}

func NewReportHandler(svc *services.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// Get accepts type (emissions, sinks or neutrality) and an optional
// startDate/endDate range.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	rep, err := h.svc.Generate(r.Context(), s.UserID, q.Get("type"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Debug("report generated", zap.Int64("user_id", s.UserID), zap.String("type", rep.Type))
	writeJSON(w, http.StatusOK, rep)
}
