package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, email string, updates map[string]any) error
}

type gatekeeper interface {
	Enforce(actor policy.Actor, action policy.Action, target policy.Target) error
}

// Service covers signup and profile management.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*UserDTO, error)
	Get(ctx context.Context, email string) (*UserDTO, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, email string, input UpdateProfileInput) (*UserDTO, error)
}

type ServiceParams struct {
	Repo    userRepository
	Policy  gatekeeper
	Billing config.BillingConfig
	Logger  *logger.Logger
}

type service struct {
	repo    userRepository
	policy  gatekeeper
	billing config.BillingConfig
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("policy gatekeeper required")
	}
	return &service{
		repo:    params.Repo,
		policy:  params.Policy,
		billing: params.Billing,
		logg:    params.Logger,
	}, nil
}

func (s *service) Signup(ctx context.Context, input SignupInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	dob, err := parseDate(input.DateOfBirth)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       email,
		Name:        name,
		Role:        role,
		PhotoURL:    trimmedPtr(input.PhotoURL),
		DateOfBirth: dob,
	}
	if role == enums.UserRoleHR {
		company := trimmedPtr(input.CompanyName)
		if company == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "companyName is required for hr accounts").
				WithDetails(map[string]any{"companyName": "is required"})
		}
		user.CompanyName = company
		user.CompanyLogo = trimmedPtr(input.CompanyLogo)
		user.PackageLimit = s.billing.BaseEmployeeLimit
		user.Subscription = s.defaultPackage()
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeEmailTaken, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, db.UniqueUsersEmail) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeEmailTaken, err, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		logCtx := s.logg.WithActor(ctx, email, string(role))
		s.logg.Info(logCtx, "user registered")
	}
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, email string) (*UserDTO, error) {
	user, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, actor policy.Actor, email string, input UpdateProfileInput) (*UserDTO, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.policy.Enforce(actor, policy.ActionProfileUpdate, policy.Target{OwnerEmail: email}); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}

	user, err := s.find(ctx, email)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.PhotoURL != nil {
		updates["photo_url"] = trimmedPtr(input.PhotoURL)
	}
	if input.DateOfBirth != nil {
		dob, err := parseDate(input.DateOfBirth)
		if err != nil {
			return nil, err
		}
		updates["date_of_birth"] = dob
	}
	if input.CompanyLogo != nil {
		if !user.IsHR() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "companyLogo can only be set on hr accounts").
				WithDetails(map[string]any{"companyLogo": "not allowed for employees"})
		}
		updates["company_logo"] = trimmedPtr(input.CompanyLogo)
	}

	if err := s.repo.UpdateProfile(ctx, email, updates); err != nil {
		return nil, mapStoreErr(err, "update profile")
	}
	return s.Get(ctx, email)
}

func (s *service) find(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, mapStoreErr(err, "load user")
	}
	return user, nil
}

func (s *service) defaultPackage() string {
	if name := strings.TrimSpace(s.billing.DefaultPackage); name != "" {
		return name
	}
	return "basic"
}

func parseDate(raw *string) (*time.Time, error) {
	value := trimmedPtr(raw)
	if value == nil {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, *value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "dateOfBirth must be YYYY-MM-DD").
			WithDetails(map[string]any{"dateOfBirth": "must be YYYY-MM-DD"})
	}
	return &parsed, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapStoreErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
