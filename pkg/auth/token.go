// Package auth mints and verifies the HS256 access tokens issued by POST /jwt.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// ErrTokenExpired lets callers tell an expired token apart from a forged one.
var ErrTokenExpired = errors.New("access token expired")

// AccessTokenPayload is what the caller knows when minting.
type AccessTokenPayload struct {
	Email string
	Role  enums.UserRole
	JTI   string
}

// AccessTokenClaims is the token body. Subject repeats the email.
type AccessTokenClaims struct {
	Email string         `json:"email"`
	Role  enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.Email == "" {
		return errors.New("token missing email claim")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries invalid role %q", c.Role)
	}
	return nil
}

func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return "", err
	}
	switch {
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}

	claims := AccessTokenClaims{
		Email: strings.ToLower(strings.TrimSpace(payload.Email)),
		Role:  payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
			ID:        strings.TrimSpace(payload.JTI),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	claims.Subject = claims.Email
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry and returns the claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, err
	}
	return claims, nil
}

func signingKey(cfg config.JWTConfig) ([]byte, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return []byte(cfg.Secret), nil
}
