package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// guardedRoutes maps "METHOD pattern" to how long a stored response is replayed.
var guardedRoutes = map[string]time.Duration{
	"POST /requests":                defaultIdempotencyTTL,
	"POST /assign-asset":            defaultIdempotencyTTL,
	"POST /create-checkout-session": defaultIdempotencyTTL,
	"POST /confirm-payment":         criticalIdempotencyTTL,
}

// ResponseStore persists replayable responses. *redis.Client satisfies it.
type ResponseStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency replays the first non-5xx response for a repeated
// Idempotency-Key on a guarded route. Reusing a key with another body is a
// conflict. Requests without the header pass through untouched.
func Idempotency(store ResponseStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !guarded || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintBody(body)
			key := store.IdempotencyKey(strings.Join([]string{EmailFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)

			prior, err := lookupResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if prior != nil {
				if prior.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				w.Header().Set(replayedHeader, "true")
				prior.writeTo(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			encoded, err := json.Marshal(storedResponse{
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(encoded), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotent response", err)
			}
		})
	}
}

func lookupResponse(ctx context.Context, store ResponseStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && raw == ""):
		return nil, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	ttl, ok := guardedRoutes[method+" "+pattern]
	return ttl, ok
}

// responseCapture tees the handler's response so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
