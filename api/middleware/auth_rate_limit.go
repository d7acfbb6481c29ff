package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// RateLimiter counts attempts in a fixed window.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one unauthenticated surface per client IP and per
// submitted email.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

// TokenRateLimit is the policy for POST /jwt.
func TokenRateLimit(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Name: "jwt", Window: cfg.TokenWindow, IPLimit: cfg.TokenIPLimit, EmailLimit: cfg.TokenEmailLimit}
}

// SignupRateLimit is the policy for POST /users.
func SignupRateLimit(cfg config.AuthRateLimitConfig) RateLimitPolicy {
	return RateLimitPolicy{Name: "signup", Window: cfg.SignupWindow, IPLimit: cfg.SignupIPLimit, EmailLimit: cfg.SignupEmailLimit}
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p RateLimitPolicy) scope(kind, value string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return name + ":" + kind + ":" + value
}

// AuthRateLimit rejects requests over either fixed window with RATE_LIMIT_EXCEEDED.
func AuthRateLimit(policy RateLimitPolicy, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); policy.IPLimit > 0 && ip != "" {
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope("ip", ip), int64(policy.IPLimit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					respondRateLimited(ctx, logg, w, policy, map[string]any{"scope": "ip", "ip": ip, "attempts": count, "limit": policy.IPLimit})
					return
				}
			}

			if policy.EmailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := extractEmail(body); email != "" {
					hash := hashValue(email)
					allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope("email", hash), int64(policy.EmailLimit), policy.Window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						respondRateLimited(ctx, logg, w, policy, map[string]any{"scope": "email", "email_hash": hash, "attempts": count, "limit": policy.EmailLimit})
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, fields map[string]any) {
	if logg != nil {
		fields["policy"] = policy.Name
		fields["window_seconds"] = int(policy.Window.Seconds())
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
