package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "assetflow",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{Email: " HR@Acme.io ", Role: enums.UserRoleHR})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Email != "hr@acme.io" {
		t.Fatalf("expected normalized email, got %s", claims.Email)
	}
	if claims.Role != enums.UserRoleHR {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
	if claims.Issuer != "assetflow" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{Email: "e@acme.io", Role: enums.UserRoleEmployee})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseAccessTokenRejectsWrongIssuerAndSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "e@acme.io", Role: enums.UserRoleEmployee})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}

	other = cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatalf("expected tampered token to fail")
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "", Role: enums.UserRoleHR}); err == nil {
		t.Fatalf("expected missing email error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@b.io", Role: "admin"}); err == nil {
		t.Fatalf("expected invalid role error")
	}
	cfg.ExpirationMinutes = 0
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Email: "a@b.io", Role: enums.UserRoleHR})
	if err == nil || !strings.Contains(err.Error(), "expiration") {
		t.Fatalf("expected expiration error, got %v", err)
	}
}

func TestParseAccessTokenToleratesSmallClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpirationMinutes = 1
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Minute-10*time.Second), AccessTokenPayload{Email: "e@acme.io", Role: enums.UserRoleEmployee})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("expected token within leeway to parse, got %v", err)
	}
}
