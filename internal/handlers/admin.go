package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"minecarbon/internal/services"
)

type AdminHandler struct {
	admin  *services.AdminService
	users  *services.UserService
	logger *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, users *services.UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, users: users, logger: logger}
}

// mustBeAdmin writes the error response itself and reports whether to continue.
func (h *AdminHandler) mustBeAdmin(w http.ResponseWriter, r *http.Request) bool {
	s, err := session(r)
	if err == nil {
		err = h.admin.RequireAdmin(r.Context(), s.UserID)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return false
	}
	return true
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if !h.mustBeAdmin(w, r) {
		return
	}
	out, err := h.admin.Overview(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	if !h.mustBeAdmin(w, r) {
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, out)
}
