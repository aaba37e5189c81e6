package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Admin represents one administrative credential.
type Admin struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AdminClaims is the JWT payload attached to authenticated admin requests.
type AdminClaims struct {
	AdminID  string `json:"adminId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminSummary is the public projection returned by login.
type AdminSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
