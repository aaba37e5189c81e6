package dto

import "github.com/pyqhub/papers-api/internal/models"

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse bundles the issued token with the admin summary.
type LoginResponse struct {
	Token string              `json:"token"`
	Admin models.AdminSummary `json:"admin"`
}
