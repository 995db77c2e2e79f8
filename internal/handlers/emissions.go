package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/apperr"
	"minecarbon/internal/services"
)

type EmissionHandler struct {
	svc    *services.EmissionService
	logger *zap.Logger
}

func NewEmissionHandler(svc *services.EmissionService, logger *zap.Logger) *EmissionHandler {
	return &EmissionHandler{svc: svc, logger: logger}
}

func (h *EmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req emissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.UserID != nil && *req.UserID != s.UserID {
		writeError(w, r, h.logger, apperr.Forbiddenf("cannot create records for another user"))
		return
	}

	id, err := h.svc.Create(r.Context(), s.UserID, req.EmissionFields)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, emissionCreated{Message: "emission data saved successfully", EmissionID: id})
}

// ListByUser serves GET /api/emissions/user/{userId}.
func (h *EmissionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
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

func (h *EmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var patch services.EmissionFields
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Update(r.Context(), s.UserID, id, patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "emission record updated successfully"})
}

func (h *EmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, messageResponse{Message: "emission record deleted successfully"})
}

func listQuery(r *http.Request) services.ListQuery {
	q := r.URL.Query()
	return services.ListQuery{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}
