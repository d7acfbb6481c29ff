package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/assetflow-backend/pkg/auth"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const unknownUserMessage = "invalid credentials"

// Service issues access tokens for registered users.
type Service interface {
	IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	users  userRepository
	jwtCfg config.JWTConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs a token service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:  params.UserRepo,
		jwtCfg: params.JWTConfig,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func (s *service) IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unknownUserMessage)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unknownUserMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	now := s.now()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		Email: user.Email,
		Role:  user.Role,
		JTI:   uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	if s.logg != nil {
		logCtx := s.logg.WithActor(ctx, user.Email, string(user.Role))
		s.logg.Info(logCtx, "access token issued")
	}

	return &TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: now.Add(s.jwtCfg.TTL()),
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}
