package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// DateLayout is the wire format of dateOfBirth.
const DateLayout = "2006-01-02"

// UserDTO is the public profile shape.
type UserDTO struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	Role             enums.UserRole `json:"role"`
	CompanyName      *string        `json:"companyName,omitempty"`
	CompanyLogo      *string        `json:"companyLogo,omitempty"`
	PhotoURL         *string        `json:"photoURL,omitempty"`
	DateOfBirth      *string        `json:"dateOfBirth,omitempty"`
	PackageLimit     int            `json:"packageLimit"`
	CurrentEmployees int            `json:"currentEmployees"`
	Subscription     string         `json:"subscription,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// SignupInput is the body of POST /users.
type SignupInput struct {
	Email       string  `json:"email" validate:"required,email"`
	Name        string  `json:"name" validate:"required,max=120"`
	Role        string  `json:"role" validate:"required,oneof=hr employee"`
	CompanyName *string `json:"companyName,omitempty" validate:"omitempty,max=160"`
	CompanyLogo *string `json:"companyLogo,omitempty" validate:"omitempty,url"`
	PhotoURL    *string `json:"photoURL,omitempty" validate:"omitempty,url"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
}

// UpdateProfileInput is the body of PUT /users/{email}. Nil fields stay untouched.
type UpdateProfileInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	PhotoURL    *string `json:"photoURL,omitempty" validate:"omitempty,url"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	CompanyLogo *string `json:"companyLogo,omitempty" validate:"omitempty,url"`
}

func (in UpdateProfileInput) empty() bool {
	return in.Name == nil && in.PhotoURL == nil && in.DateOfBirth == nil && in.CompanyLogo == nil
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		CompanyName:      u.CompanyName,
		CompanyLogo:      u.CompanyLogo,
		PhotoURL:         u.PhotoURL,
		PackageLimit:     u.PackageLimit,
		CurrentEmployees: u.CurrentEmployees,
		Subscription:     u.Subscription,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.DateOfBirth != nil {
		formatted := u.DateOfBirth.Format(DateLayout)
		dto.DateOfBirth = &formatted
	}
	return dto
}
