package auth

import (
	"time"

	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// TokenRequest is the body of POST /jwt.
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenResponse carries the signed access token.
type TokenResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"tokenType"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
}
