package affiliations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
	"github.com/angelmondragon/assetflow-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatekeeper interface {
	Enforce(actor policy.Actor, action policy.Action, target policy.Target) error
}

// assignmentReturner hands back every unit an employee holds from a company.
type assignmentReturner interface {
	ReturnAllForEmployee(ctx context.Context, tx *gorm.DB, employeeEmail, companyName string, actor *outbox.ActorRef) (int, error)
}

// Service manages employee and company pairings and the hr seat counter.
type Service interface {
	Ensure(ctx context.Context, tx *gorm.DB, hr *models.User, employee Employee, actor *outbox.ActorRef) (*models.Affiliation, error)
	Remove(ctx context.Context, actor policy.Actor, input RemoveInput) (*RemovalResult, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AffiliationDTO], error)
}

type ServiceParams struct {
	Repo        *Repository
	Users       *users.Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Policy      gatekeeper
	Assignments assignmentReturner
	Metrics     *metrics.WorkflowMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	users       *users.Repository
	tx          txRunner
	outbox      outboxPublisher
	policy      gatekeeper
	assignments assignmentReturner
	metrics     *metrics.WorkflowMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("affiliations repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Policy == nil:
		return nil, fmt.Errorf("policy gatekeeper required")
	case params.Assignments == nil:
		return nil, fmt.Errorf("assignment returner required")
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		tx:          params.Tx,
		outbox:      params.Outbox,
		policy:      params.Policy,
		assignments: params.Assignments,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// Ensure makes the employee an active member of hr's company inside tx.
// An already active pairing is returned untouched. Creating or reactivating
// one takes a seat from hr's package and fails with PACKAGE_LIMIT when none is left.
func (s *service) Ensure(ctx context.Context, tx *gorm.DB, hr *models.User, employee Employee, actor *outbox.ActorRef) (*models.Affiliation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !hr.IsHR() || hr.Company() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "asset owner is not an hr account")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByPair(ctx, employee.Email, hr.Company())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliation")
	}
	if existing != nil && existing.Status == enums.AffiliationStatusActive {
		return existing, nil
	}

	seatsRepo := s.users.WithTx(tx)
	ok, err := seatsRepo.ReserveSeat(ctx, hr.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodePackageLimit, "employee limit reached for the current package").
			WithDetails(map[string]any{"packageLimit": hr.PackageLimit})
	}

	now := time.Now().UTC()
	affiliation := existing
	if affiliation == nil {
		affiliation = &models.Affiliation{
			EmployeeEmail: employee.Email,
			EmployeeName:  employee.Name,
			HREmail:       hr.Email,
			CompanyName:   hr.Company(),
			CompanyLogo:   hr.CompanyLogo,
			Status:        enums.AffiliationStatusActive,
			AffiliatedAt:  now,
		}
		if err := repo.Create(ctx, affiliation); err != nil {
			if db.IsUniqueViolation(err, db.UniqueAffiliation) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "affiliation changed concurrently")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create affiliation")
		}
	} else {
		affiliation.EmployeeName = employee.Name
		affiliation.CompanyLogo = hr.CompanyLogo
		reactivated, err := repo.Reactivate(ctx, affiliation, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate affiliation")
		}
		if !reactivated {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "affiliation changed concurrently")
		}
		affiliation.Status = enums.AffiliationStatusActive
		affiliation.AffiliatedAt = now
		affiliation.RemovedAt = nil
	}

	current, err := s.currentEmployees(ctx, seatsRepo, hr.Email)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAffiliationActivated,
		AggregateType: enums.AggregateAffiliation,
		AggregateID:   affiliation.ID,
		Actor:         actor,
		OccurredAt:    now,
		Data: payloads.AffiliationEvent{
			AffiliationID:    affiliation.ID,
			EmployeeEmail:    affiliation.EmployeeEmail,
			HREmail:          affiliation.HREmail,
			CompanyName:      affiliation.CompanyName,
			Status:           enums.AffiliationStatusActive,
			CurrentEmployees: current,
			OccurredAt:       now,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit affiliation activated")
	}
	return affiliation, nil
}

func (s *service) Remove(ctx context.Context, actor policy.Actor, input RemoveInput) (*RemovalResult, error) {
	status, err := enums.ParseAffiliationStatus(strings.TrimSpace(input.Status))
	if err != nil || status != enums.AffiliationStatusInactive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be inactive")
	}
	employeeEmail := strings.ToLower(strings.TrimSpace(input.EmployeeEmail))
	if employeeEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employeeEmail is required")
	}
	if strings.TrimSpace(actor.Company) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "hr company context missing")
	}

	now := time.Now().UTC()
	ref := &outbox.ActorRef{Email: actor.Email, Role: string(actor.Role), Company: actor.Company}
	var result RemovalResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affiliation, err := repo.FindByPair(ctx, employeeEmail, actor.Company)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "affiliation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliation")
		}
		if err := s.policy.Enforce(actor, policy.ActionAffiliationRemove, policy.Target{HREmail: affiliation.HREmail}); err != nil {
			return err
		}
		if affiliation.Status != enums.AffiliationStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "affiliation is already inactive")
		}

		returned, err := s.assignments.ReturnAllForEmployee(ctx, tx, employeeEmail, affiliation.CompanyName, ref)
		if err != nil {
			return err
		}

		deactivated, err := repo.Deactivate(ctx, affiliation, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate affiliation")
		}
		if !deactivated {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "affiliation is already inactive")
		}
		affiliation.Status = enums.AffiliationStatusInactive
		affiliation.RemovedAt = &now

		seatsRepo := s.users.WithTx(tx)
		if _, err := seatsRepo.ReleaseSeat(ctx, affiliation.HREmail); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seat")
		}
		current, err := s.currentEmployees(ctx, seatsRepo, affiliation.HREmail)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAffiliationRemoved,
			AggregateType: enums.AggregateAffiliation,
			AggregateID:   affiliation.ID,
			Actor:         ref,
			OccurredAt:    now,
			Data: payloads.AffiliationEvent{
				AffiliationID:    affiliation.ID,
				EmployeeEmail:    affiliation.EmployeeEmail,
				HREmail:          affiliation.HREmail,
				CompanyName:      affiliation.CompanyName,
				Status:           enums.AffiliationStatusInactive,
				CurrentEmployees: current,
				ReturnedCount:    returned,
				OccurredAt:       now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit affiliation removed")
		}

		result = RemovalResult{
			Affiliation:      FromModel(affiliation),
			ReturnedCount:    returned,
			CurrentEmployees: current,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddReturns(metrics.ReturnRemoval, result.ReturnedCount)
	if s.logg != nil {
		logCtx := s.logg.WithCompany(ctx, actor.Company)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"employee_email": employeeEmail,
			"returned_count": result.ReturnedCount,
		})
		s.logg.Info(logCtx, "affiliation removed")
	}
	return &result, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AffiliationDTO], error) {
	var scope ListScope
	switch actor.Role {
	case enums.UserRoleHR:
		scope.HREmail = actor.Email
		if filters.Status == nil {
			active := enums.AffiliationStatusActive
			filters.Status = &active
		}
	case enums.UserRoleEmployee:
		scope.EmployeeEmail = actor.Email
	default:
		return types.Page[AffiliationDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}

	rows, next, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		return types.Page[AffiliationDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list affiliations")
	}
	items := make([]AffiliationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return types.NewPage(items, next), nil
}

func (s *service) currentEmployees(ctx context.Context, repo *users.Repository, hrEmail string) (int, error) {
	hr, err := repo.FindByEmail(ctx, hrEmail)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload hr account")
	}
	return hr.CurrentEmployees, nil
}
