package handlers

import (
	"time"

	"minecarbon/internal/models"
	"minecarbon/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
	Token   string `json:"token"`
}

type loginResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// emissionRequest may name the owner; it must then be the caller.
type emissionRequest struct {
	UserID *int64 `json:"userId"`
	services.EmissionFields
}

type emissionCreated struct {
	Message    string `json:"message"`
	EmissionID int64  `json:"emissionId"`
}

type sinkRequest struct {
	UserID *int64 `json:"userId"`
	services.SinkFields
}

type sinkCreated struct {
	Message string `json:"message"`
	SinkID  int64  `json:"sinkId"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// UserDTO is the admin view of an account.
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
