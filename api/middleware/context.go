package middleware

import (
	"context"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

type contextKey string

const (
	ctxEmail  contextKey = "user_email"
	ctxRole   contextKey = "actor_role"
	ctxHRUser contextKey = "hr_user"
)

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// HRUserFromContext returns the hr account loaded by RequireHR, or nil.
func HRUserFromContext(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxHRUser).(*models.User); ok {
		return v
	}
	return nil
}

// WithEmail injects the caller email into the context.
func WithEmail(ctx context.Context, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxEmail, email)
}

// WithRole injects the caller role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

func WithHRUser(ctx context.Context, user *models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxHRUser, user)
}

// Actor builds the policy actor for the authenticated caller. Company is only
// known on routes guarded by RequireHR.
func Actor(ctx context.Context) policy.Actor {
	actor := policy.Actor{
		Email: EmailFromContext(ctx),
		Role:  enums.UserRole(RoleFromContext(ctx)),
	}
	if hr := HRUserFromContext(ctx); hr != nil && hr.CompanyName != nil {
		actor.Company = *hr.CompanyName
	}
	return actor
}
