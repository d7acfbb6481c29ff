package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
	"github.com/angelmondragon/assetflow-backend/pkg/types"
	"github.com/angelmondragon/assetflow-backend/pkg/visibility"
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

// affiliationLookup resolves which companies an employee currently belongs to.
type affiliationLookup interface {
	ActiveCompanies(ctx context.Context, employeeEmail string) ([]string, error)
}

// Service manages hr inventory and the read paths over it.
type Service interface {
	Create(ctx context.Context, hr *models.User, input CreateAssetInput) (*AssetDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateAssetInput) (*AssetDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AssetDTO, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssetDTO], error)
	ListAvailable(ctx context.Context, filters ListFilters, params pagination.Params) (types.Page[AssetDTO], error)
}

type ServiceParams struct {
	Repo         *Repository
	Tx           txRunner
	Outbox       outboxPublisher
	Policy       gatekeeper
	Affiliations affiliationLookup
	Metrics      *metrics.WorkflowMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	tx           txRunner
	outbox       outboxPublisher
	policy       gatekeeper
	affiliations affiliationLookup
	metrics      *metrics.WorkflowMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assets repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("policy gatekeeper required")
	}
	if params.Affiliations == nil {
		return nil, fmt.Errorf("affiliation lookup required")
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		outbox:       params.Outbox,
		policy:       params.Policy,
		affiliations: params.Affiliations,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, hr *models.User, input CreateAssetInput) (*AssetDTO, error) {
	if !hr.IsHR() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "hr role required")
	}
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productName is required")
	}
	assetType, err := enums.ParseAssetType(strings.TrimSpace(input.ProductType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid productType")
	}
	if input.ProductQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productQuantity must be zero or more")
	}

	asset := &models.Asset{
		ProductName:       name,
		ProductType:       assetType,
		ProductQuantity:   input.ProductQuantity,
		AvailableQuantity: input.ProductQuantity,
		HREmail:           hr.Email,
		CompanyName:       hr.Company(),
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create asset")
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "asset_id", asset.ID.String())
		s.logg.Info(logCtx, "asset created")
	}
	dto := FromModel(asset)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateAssetInput) (*AssetDTO, error) {
	if input.ProductName == nil && input.ProductType == nil && input.ProductQuantity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}
	current, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Enforce(actor, policy.ActionAssetManage, policy.Target{HREmail: current.HREmail}); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.ProductName != nil {
		name := strings.TrimSpace(*input.ProductName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "productName cannot be empty")
		}
		updates["product_name"] = name
	}
	if input.ProductType != nil {
		assetType, err := enums.ParseAssetType(strings.TrimSpace(*input.ProductType))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid productType")
		}
		updates["product_type"] = assetType
	}
	if input.ProductQuantity != nil {
		product, available, err := shiftQuantities(current, *input.ProductQuantity)
		if err != nil {
			return nil, err
		}
		updates["product_quantity"] = product
		updates["available_quantity"] = available
	}

	ok, err := s.repo.UpdateIfUnchanged(ctx, current, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update asset")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "asset changed concurrently, reload and retry")
	}

	updated, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

// shiftQuantities moves available by the same delta as product and rejects
// results outside 0 <= available <= product.
func shiftQuantities(current *models.Asset, newProduct int) (int, int, error) {
	if newProduct < 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "productQuantity must be zero or more")
	}
	available := current.AvailableQuantity + (newProduct - current.ProductQuantity)
	if available < 0 || available > newProduct {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "productQuantity cannot drop below the units currently assigned").
			WithDetails(map[string]any{
				"productQuantity":   newProduct,
				"assignedQuantity":  current.ProductQuantity - current.AvailableQuantity,
				"availableQuantity": current.AvailableQuantity,
			})
	}
	return newProduct, available, nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	now := time.Now().UTC()
	var rejected int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := s.policy.Enforce(actor, policy.ActionAssetManage, policy.Target{HREmail: asset.HREmail}); err != nil {
			return err
		}

		active, err := repo.CountActiveAssignments(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assignments")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "asset has active assignments").
				WithDetails(map[string]any{"activeAssignments": active})
		}

		pending, err := repo.PendingRequests(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending requests")
		}
		if _, err := repo.RejectPendingRequests(ctx, id, actor.Email, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending requests")
		}
		for _, req := range pending {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRequestRejected,
				AggregateType: enums.AggregateAssetRequest,
				AggregateID:   req.ID,
				Actor:         actorRef(actor),
				OccurredAt:    now,
				Data: payloads.RequestDecidedEvent{
					RequestID:      req.ID,
					AssetID:        req.AssetID,
					RequesterEmail: req.RequesterEmail,
					HREmail:        req.HREmail,
					CompanyName:    req.CompanyName,
					Status:         enums.RequestStatusRejected,
					DecidedAt:      now,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request rejected")
			}
		}
		rejected = len(pending)

		if err := repo.Delete(ctx, id); err != nil {
			return mapStoreErr(err, "delete asset")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := 0; i < rejected; i++ {
		s.metrics.IncRequest(metrics.OutcomeRejected)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"asset_id":          id.String(),
			"rejected_requests": rejected,
		})
		s.logg.Info(logCtx, "asset deleted")
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*AssetDTO, error) {
	asset, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	input := visibility.AssetVisibilityInput{
		Asset:       asset,
		ViewerRole:  actor.Role,
		ViewerEmail: actor.Email,
	}
	if actor.Role == enums.UserRoleEmployee && asset.AvailableQuantity == 0 {
		companies, err := s.affiliations.ActiveCompanies(ctx, actor.Email)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliations")
		}
		input.Companies = companies
	}
	if err := visibility.EnsureAssetVisible(input); err != nil {
		return nil, err
	}
	dto := FromModel(asset)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[AssetDTO], error) {
	var scope ListScope
	switch actor.Role {
	case enums.UserRoleHR:
		scope.HREmail = actor.Email
	case enums.UserRoleEmployee:
		companies, err := s.affiliations.ActiveCompanies(ctx, actor.Email)
		if err != nil {
			return types.Page[AssetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load affiliations")
		}
		if companies == nil {
			companies = []string{}
		}
		scope.Companies = companies
	default:
		return types.Page[AssetDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	filters.Company = ""
	return s.list(ctx, scope, filters, params)
}

func (s *service) ListAvailable(ctx context.Context, filters ListFilters, params pagination.Params) (types.Page[AssetDTO], error) {
	filters.Stock = nil
	return s.list(ctx, ListScope{OnlyAvailable: true}, filters, params)
}

func (s *service) list(ctx context.Context, scope ListScope, filters ListFilters, params pagination.Params) (types.Page[AssetDTO], error) {
	rows, next, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		return types.Page[AssetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assets")
	}
	return types.NewPage(fromModels(rows), next), nil
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Asset, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	asset, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "load asset")
	}
	return asset, nil
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{Email: actor.Email, Role: string(actor.Role), Company: actor.Company}
}

func mapStoreErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
