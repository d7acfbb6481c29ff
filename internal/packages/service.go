package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
)

// PackageDTO exposes a catalog tier with its price as a decimal string.
type PackageDTO struct {
	Name          string `json:"name"`
	EmployeeLimit int    `json:"employeeLimit"`
	Price         string `json:"price"`
	PriceCents    int64  `json:"priceCents"`
	Description   string `json:"description"`
}

type Service interface {
	List(ctx context.Context) ([]PackageDTO, error)
	Get(ctx context.Context, name string) (*models.Package, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("packages repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]PackageDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	out := make([]PackageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// Get resolves a package by name, case-insensitively.
func (s *service) Get(ctx context.Context, name string) (*models.Package, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "packageName is required")
	}
	pkg, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	return pkg, nil
}

func FromModel(p *models.Package) PackageDTO {
	return PackageDTO{
		Name:          p.Name,
		EmployeeLimit: p.EmployeeLimit,
		Price:         FormatCents(p.PriceCents),
		PriceCents:    p.PriceCents,
		Description:   p.Description,
	}
}

// FormatCents renders minor units as a two-place decimal string.
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
