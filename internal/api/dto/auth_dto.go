package dto

import "time"

// LoginRequest payload for POST /api/authenticate.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActivationRequest payload for POST /api/account/activate.
type ActivationRequest struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}
