package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	pkgAuth "github.com/angelmondragon/assetflow-backend/pkg/auth"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// Auth requires a valid access token. The caller's normalized email and role
// are stored on the request context for handlers and policy checks.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			email := strings.ToLower(strings.TrimSpace(claims.Email))
			role := string(claims.Role)
			ctx := WithRole(WithEmail(r.Context(), email), role)
			if logg != nil {
				ctx = logg.WithActor(ctx, email, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
