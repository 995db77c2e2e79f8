package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/apperr"
	"minecarbon/internal/services"
)

type SinkHandler struct {
	svc    *services.SinkService
	logger *zap.Logger
}

func NewSinkHandler(svc *services.SinkService, logger *zap.Logger) *SinkHandler {
	return &SinkHandler{svc: svc, logger: logger}
}

func (h *SinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req sinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.UserID != nil && *req.UserID != s.UserID {
		writeError(w, r, h.logger, apperr.Forbiddenf("cannot create records for another user"))
		return
	}

	id, err := h.svc.Create(r.Context(), s.UserID, req.SinkFields)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sinkCreated{Message: "carbon sink data saved successfully", SinkID: id})
}

func (h *SinkHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err == nil {
		err = ownPath(r, s)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out, err := h.svc.List(r.Context(), s.UserID, listQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var patch services.SinkFields
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Update(r.Context(), s.UserID, id, patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "carbon sink record updated successfully"})
}

func (h *SinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), s.UserID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "carbon sink record deleted successfully"})
}
