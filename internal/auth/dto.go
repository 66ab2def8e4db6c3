package auth

import "github.com/angelmondragon/storefront-backend/internal/users"

// LoginRequest accepts either the username or the mobile as the login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both login and registration.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}
