package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
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

const defaultLockTTL = 30 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gatekeeper interface {
	Enforce(actor policy.Actor, action policy.Action, target policy.Target) error
}

type assetLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type stockKeeper interface {
	Reserve(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (int, bool, error)
	Release(ctx context.Context, tx *gorm.DB, assetID uuid.UUID) (bool, error)
}

type affiliationFinder interface {
	FindByPair(ctx context.Context, employeeEmail, companyName string) (*models.Affiliation, error)
}

type locker interface {
	LockKey(scope string, parts ...string) string
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Service owns the assigned and returned lifecycle of asset units.
type Service interface {
	CreateFromRequest(ctx context.Context, tx *gorm.DB, input FromRequest, actor *outbox.ActorRef) (*models.Assignment, error)
	DirectAssign(ctx context.Context, actor policy.Actor, input DirectAssignInput) (*AssignmentDTO, error)
	Return(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AssignmentDTO, error)
	ReturnAllForEmployee(ctx context.Context, tx *gorm.DB, employeeEmail, companyName string, actor *outbox.ActorRef) (int, error)
	ListMine(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssignmentDTO], error)
	ListCompany(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssignmentDTO], error)
}

type ServiceParams struct {
	Repo         *Repository
	Assets       assetLoader
	Inventory    stockKeeper
	Affiliations affiliationFinder
	Tx           txRunner
	Outbox       outboxPublisher
	Policy       gatekeeper
	Locker       locker
	LockTTL      time.Duration
	Metrics      *metrics.WorkflowMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	assets       assetLoader
	inventory    stockKeeper
	affiliations affiliationFinder
	tx           txRunner
	outbox       outboxPublisher
	policy       gatekeeper
	locker       locker
	lockTTL      time.Duration
	metrics      *metrics.WorkflowMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("assignments repository required")
	case params.Assets == nil:
		return nil, fmt.Errorf("asset loader required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory required")
	case params.Affiliations == nil:
		return nil, fmt.Errorf("affiliation finder required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Policy == nil:
		return nil, fmt.Errorf("policy gatekeeper required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	}
	ttl := params.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &service{
		repo:         params.Repo,
		assets:       params.Assets,
		inventory:    params.Inventory,
		affiliations: params.Affiliations,
		tx:           params.Tx,
		outbox:       params.Outbox,
		policy:       params.Policy,
		locker:       params.Locker,
		lockTTL:      ttl,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// CreateFromRequest turns an approved request into an assignment inside tx and
// takes one unit of stock for it.
func (s *service) CreateFromRequest(ctx context.Context, tx *gorm.DB, input FromRequest, actor *outbox.ActorRef) (*models.Assignment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	req := input.Request
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "request required")
	}
	requestID := req.ID
	assignment := &models.Assignment{
		AssetID:       req.AssetID,
		AssetName:     req.AssetName,
		AssetType:     req.AssetType,
		EmployeeEmail: req.RequesterEmail,
		EmployeeName:  firstNonEmpty(input.EmployeeName, req.RequesterName),
		HREmail:       req.HREmail,
		CompanyName:   req.CompanyName,
		RequestID:     &requestID,
		Source:        enums.AssignmentSourceRequest,
		Note:          req.Note,
		Status:        enums.AssignmentStatusAssigned,
		AssignedAt:    time.Now().UTC(),
	}
	if err := s.assign(ctx, tx, assignment, actor); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) DirectAssign(ctx context.Context, actor policy.Actor, input DirectAssignInput) (*AssignmentDTO, error) {
	assetID, err := uuid.Parse(strings.TrimSpace(input.AssetID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assetId must be a uuid")
	}
	employeeEmail := strings.ToLower(strings.TrimSpace(input.EmployeeEmail))
	if employeeEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employeeEmail is required")
	}

	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	if err := s.policy.Enforce(actor, policy.ActionAssignmentDirect, policy.Target{HREmail: asset.HREmail}); err != nil {
		return nil, err
	}

	affiliation, err := s.affiliations.FindByPair(ctx, employeeEmail, asset.CompanyName)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliation")
	}
	if affiliation == nil || affiliation.Status != enums.AffiliationStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotAffiliated, "employee is not affiliated with this company")
	}
	if asset.AvailableQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "asset is out of stock")
	}

	key := s.locker.LockKey("assign", asset.ID.String(), employeeEmail)
	token, acquired, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire assignment lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "assignment already in progress")
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "lock_key", key), "release assignment lock failed")
		}
	}()

	assignment := &models.Assignment{
		AssetID:       asset.ID,
		AssetName:     asset.ProductName,
		AssetType:     asset.ProductType,
		EmployeeEmail: employeeEmail,
		EmployeeName:  affiliation.EmployeeName,
		HREmail:       asset.HREmail,
		CompanyName:   asset.CompanyName,
		Source:        enums.AssignmentSourceDirect,
		Note:          trimmedPtr(input.Note),
		Status:        enums.AssignmentStatusAssigned,
		AssignedAt:    time.Now().UTC(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.assign(ctx, tx, assignment, actorRef(actor))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAssignment(metrics.SourceDirect)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"assignment_id":  assignment.ID.String(),
			"asset_id":       asset.ID.String(),
			"employee_email": employeeEmail,
		})
		s.logg.Info(logCtx, "asset assigned directly")
	}
	dto := FromModel(assignment)
	return &dto, nil
}

// assign inserts the assignment, takes one unit and emits asset_assigned.
// Only direct assignments are unique per (asset, employee); approvals may hand
// the same employee several units.
func (s *service) assign(ctx context.Context, tx *gorm.DB, assignment *models.Assignment, actor *outbox.ActorRef) error {
	if err := s.repo.WithTx(tx).Create(ctx, assignment); err != nil {
		if assignment.Source == enums.AssignmentSourceDirect && db.IsUniqueViolation(err, db.UniqueDirectAssignment) {
			return pkgerrors.Wrap(pkgerrors.CodeAlreadyAssigned, err, "employee already holds this asset")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
	}

	remaining, ok, err := s.inventory.Reserve(ctx, tx, assignment.AssetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "asset is out of stock")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAssetAssigned,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   assignment.ID,
		Actor:         actor,
		OccurredAt:    assignment.AssignedAt,
		Data: payloads.AssetAssignedEvent{
			AssignmentID:      assignment.ID,
			AssetID:           assignment.AssetID,
			AssetName:         assignment.AssetName,
			EmployeeEmail:     assignment.EmployeeEmail,
			HREmail:           assignment.HREmail,
			CompanyName:       assignment.CompanyName,
			Source:            assignment.Source,
			RequestID:         assignment.RequestID,
			AvailableQuantity: remaining,
			AssignedAt:        assignment.AssignedAt,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit asset assigned")
	}
	return nil
}

func (s *service) Return(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AssignmentDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	var returned *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assignment, err := s.repo.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		if err := s.policy.Enforce(actor, policy.ActionAssignmentReturn, policy.Target{OwnerEmail: assignment.EmployeeEmail}); err != nil {
			return err
		}
		if assignment.Status != enums.AssignmentStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "asset already returned")
		}
		if err := s.returnOne(ctx, tx, assignment, enums.ReturnModeEmployee, actorRef(actor)); err != nil {
			return err
		}
		returned = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddReturns(metrics.ReturnEmployee, 1)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"assignment_id": returned.ID.String(),
			"asset_id":      returned.AssetID.String(),
		})
		s.logg.Info(logCtx, "asset returned")
	}
	dto := FromModel(returned)
	return &dto, nil
}

// ReturnAllForEmployee returns every unit the employee holds from the company
// inside tx. Metrics are left to the caller once tx commits.
func (s *service) ReturnAllForEmployee(ctx context.Context, tx *gorm.DB, employeeEmail, companyName string, actor *outbox.ActorRef) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	active, err := s.repo.WithTx(tx).ActiveForEmployee(ctx, employeeEmail, companyName)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active assignments")
	}
	for i := range active {
		if err := s.returnOne(ctx, tx, &active[i], enums.ReturnModeRemoval, actor); err != nil {
			return 0, err
		}
	}
	return len(active), nil
}

func (s *service) returnOne(ctx context.Context, tx *gorm.DB, assignment *models.Assignment, mode enums.ReturnMode, actor *outbox.ActorRef) error {
	now := time.Now().UTC()
	ok, err := s.repo.WithTx(tx).MarkReturned(ctx, assignment.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark assignment returned")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "asset already returned")
	}
	assignment.Status = enums.AssignmentStatusReturned
	assignment.ReturnedAt = &now

	restocked, err := s.inventory.Release(ctx, tx, assignment.AssetID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAssetReturned,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   assignment.ID,
		Actor:         actor,
		OccurredAt:    now,
		Data: payloads.AssetReturnedEvent{
			AssignmentID:  assignment.ID,
			AssetID:       assignment.AssetID,
			EmployeeEmail: assignment.EmployeeEmail,
			HREmail:       assignment.HREmail,
			CompanyName:   assignment.CompanyName,
			Mode:          mode,
			Restocked:     restocked,
			ReturnedAt:    now,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit asset returned")
	}
	return nil
}

func (s *service) ListMine(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssignmentDTO], error) {
	if strings.TrimSpace(actor.Email) == "" {
		return types.Page[AssignmentDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	filters.EmployeeEmail = ""
	return s.list(ctx, ListScope{EmployeeEmail: actor.Email}, filters, params)
}

func (s *service) ListCompany(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssignmentDTO], error) {
	if actor.Role != enums.UserRoleHR || strings.TrimSpace(actor.Company) == "" {
		return types.Page[AssignmentDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "hr role required")
	}
	filters.EmployeeEmail = strings.ToLower(strings.TrimSpace(filters.EmployeeEmail))
	return s.list(ctx, ListScope{CompanyName: actor.Company}, filters, params)
}

func (s *service) list(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) (types.Page[AssignmentDTO], error) {
	rows, next, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		return types.Page[AssignmentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	items := make([]AssignmentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return types.NewPage(items, next), nil
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{Email: actor.Email, Role: string(actor.Role), Company: actor.Company}
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
