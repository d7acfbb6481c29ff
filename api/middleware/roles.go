package middleware

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// UserLoader resolves a stored user by email.
type UserLoader interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// RequireHR resolves the token email to a stored hr account and loads it into
// the request context. Must run after Auth.
func RequireHR(users UserLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			email := EmailFromContext(ctx)
			if email == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			user, err := users.FindByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user"))
				return
			}
			if user.Role != enums.UserRoleHR {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hr role required"))
				return
			}

			ctx = WithHRUser(ctx, user)
			ctx = WithRole(ctx, string(user.Role))
			if logg != nil && user.CompanyName != nil {
				ctx = logg.WithCompany(ctx, *user.CompanyName)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
