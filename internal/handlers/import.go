package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/services"
)

type ImportHandler struct {
	svc    *services.ImportService
	logger *zap.Logger
}

func NewImportHandler(svc *services.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

type importResponse struct {
	Message  string                `json:"message"`
	Imported services.ImportResult `json:"imported"`
}

// Import stores a batch of emission and sink records in one transaction.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var batch services.ImportBatch
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Import(r.Context(), s.UserID, batch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("records imported",
		zap.Int64("user_id", s.UserID),
		zap.Int("emissions", res.Emissions),
		zap.Int("sinks", res.Sinks),
	)
	writeJSON(w, http.StatusCreated, importResponse{Message: "data imported successfully", Imported: res})
}
