package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/internal/assignments"
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

type affiliationEnsurer interface {
	Ensure(ctx context.Context, tx *gorm.DB, hr *models.User, employee affiliations.Employee, actor *outbox.ActorRef) (*models.Affiliation, error)
}

type assignmentCreator interface {
	CreateFromRequest(ctx context.Context, tx *gorm.DB, input assignments.FromRequest, actor *outbox.ActorRef) (*models.Assignment, error)
}

// Service drives the pending, approved and rejected lifecycle of asset requests.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateRequestInput) (*RequestDTO, error)
	Decide(ctx context.Context, actor policy.Actor, input DecideInput) (*DecisionResult, error)
	List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[RequestDTO], error)
}

type ServiceParams struct {
	Repo         *Repository
	Assets       *assets.Repository
	Users        *users.Repository
	Affiliations affiliationEnsurer
	Assignments  assignmentCreator
	Tx           txRunner
	Outbox       outboxPublisher
	Policy       gatekeeper
	Metrics      *metrics.WorkflowMetrics
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	assets       *assets.Repository
	users        *users.Repository
	affiliations affiliationEnsurer
	assignments  assignmentCreator
	tx           txRunner
	outbox       outboxPublisher
	policy       gatekeeper
	metrics      *metrics.WorkflowMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("requests repository required")
	case params.Assets == nil:
		return nil, fmt.Errorf("assets repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Affiliations == nil:
		return nil, fmt.Errorf("affiliation ensurer required")
	case params.Assignments == nil:
		return nil, fmt.Errorf("assignment creator required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Policy == nil:
		return nil, fmt.Errorf("policy gatekeeper required")
	}
	return &service{
		repo:         params.Repo,
		assets:       params.Assets,
		users:        params.Users,
		affiliations: params.Affiliations,
		assignments:  params.Assignments,
		tx:           params.Tx,
		outbox:       params.Outbox,
		policy:       params.Policy,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateRequestInput) (*RequestDTO, error) {
	if err := s.policy.Enforce(actor, policy.ActionRequestCreate, policy.Target{OwnerEmail: actor.Email}); err != nil {
		return nil, err
	}
	assetID, err := uuid.Parse(strings.TrimSpace(input.AssetID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assetId must be a uuid")
	}

	var created *models.AssetRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requester, err := s.users.WithTx(tx).FindByEmail(ctx, actor.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown account")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requester")
		}

		asset, err := s.assets.WithTx(tx).FindByID(ctx, assetID)
		if err != nil {
			return assetErr(err)
		}
		if asset.AvailableQuantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "asset is out of stock")
		}

		repo := s.repo.WithTx(tx)
		pending, err := repo.HasPending(ctx, asset.ID, requester.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending requests")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeDuplicateRequest, "a pending request for this asset already exists")
		}

		req := &models.AssetRequest{
			AssetID:        asset.ID,
			AssetName:      asset.ProductName,
			AssetType:      asset.ProductType,
			RequesterEmail: requester.Email,
			RequesterName:  requester.Name,
			HREmail:        asset.HREmail,
			CompanyName:    asset.CompanyName,
			Note:           trimmedPtr(input.Note),
			Status:         enums.RequestStatusPending,
		}
		if err := repo.Create(ctx, req); err != nil {
			if db.IsUniqueViolation(err, db.UniquePendingRequest) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateRequest, err, "a pending request for this asset already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCreated,
			AggregateType: enums.AggregateAssetRequest,
			AggregateID:   req.ID,
			Actor:         actorRef(actor),
			OccurredAt:    req.CreatedAt,
			Data: payloads.RequestCreatedEvent{
				RequestID:      req.ID,
				AssetID:        req.AssetID,
				AssetName:      req.AssetName,
				AssetType:      req.AssetType,
				RequesterEmail: req.RequesterEmail,
				HREmail:        req.HREmail,
				CompanyName:    req.CompanyName,
				RequestedAt:    req.CreatedAt,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request created")
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRequest(metrics.OutcomeCreated)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"request_id": created.ID.String(),
			"asset_id":   created.AssetID.String(),
		})
		s.logg.Info(logCtx, "asset request created")
	}
	dto := FromModel(created)
	return &dto, nil
}

// Decide approves or rejects a pending request. Approval checks stock, makes
// sure the employee holds a seat in the company, assigns one unit and closes
// the request, all in one transaction.
func (s *service) Decide(ctx context.Context, actor policy.Actor, input DecideInput) (*DecisionResult, error) {
	requestID, err := uuid.Parse(strings.TrimSpace(input.RequestID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requestId must be a uuid")
	}
	status, err := enums.ParseRequestStatus(strings.TrimSpace(input.Status))
	if err != nil || status == enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}

	start := time.Now()
	now := start.UTC()
	ref := actorRef(actor)
	var (
		decided    *models.AssetRequest
		assignment *models.Assignment
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if err := s.policy.Enforce(actor, policy.ActionRequestDecide, policy.Target{HREmail: req.HREmail}); err != nil {
			return err
		}
		if req.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "request has already been decided").
				WithDetails(map[string]any{"status": req.Status})
		}

		if status == enums.RequestStatusApproved {
			assignment, err = s.approve(ctx, tx, req, ref)
			if err != nil {
				return err
			}
		}

		ok, err := repo.MarkDecided(ctx, req.ID, status, actor.Email, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "request has already been decided")
		}
		decidedBy := actor.Email
		req.Status = status
		req.DecidedAt = &now
		req.DecidedBy = &decidedBy

		event := payloads.RequestDecidedEvent{
			RequestID:      req.ID,
			AssetID:        req.AssetID,
			RequesterEmail: req.RequesterEmail,
			HREmail:        req.HREmail,
			CompanyName:    req.CompanyName,
			Status:         status,
			DecidedAt:      now,
		}
		eventType := enums.EventRequestRejected
		if assignment != nil {
			eventType = enums.EventRequestApproved
			event.AssignmentID = &assignment.ID
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateAssetRequest,
			AggregateID:   req.ID,
			Actor:         ref,
			OccurredAt:    now,
			Data:          event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request decision")
		}
		decided = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &DecisionResult{Request: FromModel(decided)}
	if assignment != nil {
		result.AssignmentID = &assignment.ID
		s.metrics.IncRequest(metrics.OutcomeApproved)
		s.metrics.IncAssignment(metrics.SourceRequest)
		s.metrics.Since("request_approve", start)
	} else {
		s.metrics.IncRequest(metrics.OutcomeRejected)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"request_id": decided.ID.String(),
			"status":     decided.Status,
		})
		s.logg.Info(logCtx, "asset request decided")
	}
	return result, nil
}

func (s *service) approve(ctx context.Context, tx *gorm.DB, req *models.AssetRequest, actor *outbox.ActorRef) (*models.Assignment, error) {
	asset, err := s.assets.WithTx(tx).FindByID(ctx, req.AssetID)
	if err != nil {
		return nil, assetErr(err)
	}
	if asset.AvailableQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "asset is out of stock")
	}

	hr, err := s.users.WithTx(tx).FindByEmail(ctx, req.HREmail)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hr account")
	}
	employee := affiliations.Employee{Email: req.RequesterEmail, Name: req.RequesterName}
	if _, err := s.affiliations.Ensure(ctx, tx, hr, employee, actor); err != nil {
		return nil, err
	}

	return s.assignments.CreateFromRequest(ctx, tx, assignments.FromRequest{
		Request:      req,
		EmployeeName: req.RequesterName,
	}, actor)
}

func (s *service) List(ctx context.Context, actor policy.Actor, filters ListFilters, params pagination.Params) (types.Page[RequestDTO], error) {
	var scope ListScope
	switch actor.Role {
	case enums.UserRoleHR:
		scope.HREmail = actor.Email
	case enums.UserRoleEmployee:
		scope.RequesterEmail = actor.Email
	default:
		return types.Page[RequestDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	rows, next, err := s.repo.List(ctx, scope, filters, params)
	if err != nil {
		return types.Page[RequestDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	items := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return types.NewPage(items, next), nil
}

func assetErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
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
