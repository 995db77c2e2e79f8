package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"minecarbon/internal/middleware"
	"minecarbon/internal/services"
)

type AuthHandler struct {
	users   *services.UserService
	tokens  *middleware.AuthMiddleware
	isAdmin func(username string) bool
	logger  *zap.Logger
}

// NewAuthHandler wires registration and login. isAdmin decides which new accounts
// get the admin flag.
func NewAuthHandler(users *services.UserService, tokens *middleware.AuthMiddleware, isAdmin func(string) bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, isAdmin: isAdmin, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// Register stores the trimmed name; the admin list is matched against the same.
	c.Username = strings.TrimSpace(c.Username)
	u, err := h.users.Register(r.Context(), c.Username, c.Password, h.isAdmin(c.Username))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	token, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.Bool("admin", u.IsAdmin))
	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "user registered successfully",
		UserID:  u.ID,
		Token:   token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), c.Username, c.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	token, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Message:  "login successful",
		UserID:   u.ID,
		Username: u.Username,
		Token:    token,
	})
}
