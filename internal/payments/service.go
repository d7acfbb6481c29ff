package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/metrics"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
	pkgstripe "github.com/angelmondragon/assetflow-backend/pkg/stripe"
	"github.com/angelmondragon/assetflow-backend/pkg/types"
)

// Checkout session metadata keys.
const (
	MetadataHREmail       = "hrEmail"
	MetadataPackageName   = "packageName"
	MetadataEmployeeLimit = "employeeLimit"

	webhookActorEmail = "stripe-webhook"
	webhookActorRole  = "system"
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

type checkoutProvider interface {
	CreateCheckoutSession(ctx context.Context, input pkgstripe.CheckoutSessionInput) (*pkgstripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*pkgstripe.CheckoutSession, error)
}

type packageCatalog interface {
	Get(ctx context.Context, name string) (*models.Package, error)
}

type locker interface {
	LockKey(scope string, parts ...string) string
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Service sells package upgrades through Stripe Checkout.
type Service interface {
	CreateCheckout(ctx context.Context, hr *models.User, input CheckoutInput) (*CheckoutResult, error)
	Confirm(ctx context.Context, actor policy.Actor, input ConfirmInput) (*ConfirmResult, error)
	ConfirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error)
	List(ctx context.Context, actor policy.Actor, params pagination.Params) (types.Page[PaymentDTO], error)
}

type ServiceParams struct {
	Repo     *Repository
	Users    *users.Repository
	Packages packageCatalog
	Stripe   checkoutProvider
	Locker   locker
	Tx       txRunner
	Outbox   outboxPublisher
	Policy   gatekeeper
	Billing  config.BillingConfig
	Metrics  *metrics.WorkflowMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	users    *users.Repository
	packages packageCatalog
	stripe   checkoutProvider
	locker   locker
	tx       txRunner
	outbox   outboxPublisher
	policy   gatekeeper
	billing  config.BillingConfig
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Packages == nil:
		return nil, fmt.Errorf("package catalog required")
	case params.Stripe == nil:
		return nil, fmt.Errorf("stripe client required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Policy == nil:
		return nil, fmt.Errorf("policy gatekeeper required")
	}
	billing := params.Billing
	if billing.ConfirmLockTTL <= 0 {
		billing.ConfirmLockTTL = 2 * time.Minute
	}
	if strings.TrimSpace(billing.Currency) == "" {
		billing.Currency = "usd"
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		packages: params.Packages,
		stripe:   params.Stripe,
		locker:   params.Locker,
		tx:       params.Tx,
		outbox:   params.Outbox,
		policy:   params.Policy,
		billing:  billing,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// CreateCheckout opens a payment-mode Checkout Session for one package.
// An hr account upgrades at most once.
func (s *service) CreateCheckout(ctx context.Context, hr *models.User, input CheckoutInput) (*CheckoutResult, error) {
	if hr == nil || !hr.IsHR() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "hr role required")
	}
	upgraded, err := s.repo.ExistsForHR(ctx, hr.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment history")
	}
	if upgraded {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyUpgraded, "package has already been upgraded")
	}

	pkg, err := s.packages.Get(ctx, input.PackageName)
	if err != nil {
		return nil, err
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, pkgstripe.CheckoutSessionInput{
		CustomerEmail:   hr.Email,
		ProductName:     fmt.Sprintf("AssetFlow %s package", pkg.Name),
		Description:     pkg.Description,
		Currency:        s.billing.Currency,
		UnitAmountCents: pkg.PriceCents,
		SuccessURL:      s.billing.SuccessURL,
		CancelURL:       s.billing.CancelURL,
		Metadata: map[string]string{
			MetadataHREmail:       hr.Email,
			MetadataPackageName:   pkg.Name,
			MetadataEmployeeLimit: strconv.Itoa(pkg.EmployeeLimit),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id":   session.ID,
			"package_name": pkg.Name,
		})
		s.logg.Info(logCtx, "checkout session created")
	}
	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// Confirm applies a paid Checkout Session to the caller's package limit.
// A session is applied once. Replays fail with PAYMENT_ALREADY_CONFIRMED.
func (s *service) Confirm(ctx context.Context, actor policy.Actor, input ConfirmInput) (*ConfirmResult, error) {
	return s.confirm(ctx, input.SessionID, func(session *pkgstripe.CheckoutSession) (*outbox.ActorRef, error) {
		if err := s.policy.Enforce(actor, policy.ActionPaymentConfirm, policy.Target{HREmail: session.Metadata[MetadataHREmail]}); err != nil {
			return nil, err
		}
		return &outbox.ActorRef{Email: actor.Email, Role: string(actor.Role), Company: actor.Company}, nil
	})
}

// ConfirmSession applies a session Stripe reported as completed. The hr
// account comes from the session metadata written by CreateCheckout.
func (s *service) ConfirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	return s.confirm(ctx, sessionID, func(session *pkgstripe.CheckoutSession) (*outbox.ActorRef, error) {
		if strings.TrimSpace(session.Metadata[MetadataHREmail]) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no hr account")
		}
		return &outbox.ActorRef{Email: webhookActorEmail, Role: webhookActorRole}, nil
	})
}

func (s *service) confirm(ctx context.Context, sessionID string, authorize func(*pkgstripe.CheckoutSession) (*outbox.ActorRef, error)) (*ConfirmResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessionId is required")
	}

	key := s.locker.LockKey("confirm-payment", sessionID)
	token, acquired, err := s.locker.AcquireLock(ctx, key, s.billing.ConfirmLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire payment lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodePaymentAlreadyConfirmed, "payment confirmation already in progress")
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "lock_key", key), "release payment lock failed")
		}
	}()

	if _, err := s.repo.FindBySession(ctx, sessionID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentAlreadyConfirmed, "payment already confirmed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	session, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}
	if !session.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "payment not completed").
			WithDetails(map[string]any{"paymentStatus": session.PaymentStatus})
	}
	actorRef, err := authorize(session)
	if err != nil {
		return nil, err
	}
	hrEmail := strings.ToLower(strings.TrimSpace(session.Metadata[MetadataHREmail]))

	pkg, err := s.packages.Get(ctx, session.Metadata[MetadataPackageName])
	if err != nil {
		return nil, err
	}
	packageLimit := s.billing.BaseEmployeeLimit + pkg.EmployeeLimit

	currency := strings.ToLower(strings.TrimSpace(session.Currency))
	if currency == "" {
		currency = s.billing.Currency
	}
	amount := session.AmountTotal
	if amount == 0 {
		amount = pkg.PriceCents
	}
	now := time.Now().UTC()
	payment := &models.Payment{
		HREmail:         hrEmail,
		PackageName:     pkg.Name,
		EmployeeLimit:   pkg.EmployeeLimit,
		AmountCents:     amount,
		Currency:        currency,
		SessionID:       sessionID,
		PaymentIntentID: optional(session.PaymentIntentID),
		Status:          enums.PaymentStatusPaid,
		PaidAt:          now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		upgraded, err := s.repo.WithTx(tx).ExistsForHR(ctx, hrEmail)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment history")
		}
		if upgraded {
			return pkgerrors.New(pkgerrors.CodeAlreadyUpgraded, "package has already been upgraded")
		}
		if err := s.users.WithTx(tx).ApplyPackage(ctx, hrEmail, packageLimit, pkg.Name); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "hr account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply package")
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, db.UniquePaymentSession) {
				return pkgerrors.Wrap(pkgerrors.CodePaymentAlreadyConfirmed, err, "payment already confirmed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actorRef,
			OccurredAt:    now,
			Data: payloads.PaymentConfirmedEvent{
				PaymentID:       payment.ID,
				HREmail:         payment.HREmail,
				PackageName:     payment.PackageName,
				EmployeeLimit:   payment.EmployeeLimit,
				PackageLimit:    packageLimit,
				AmountCents:     payment.AmountCents,
				Currency:        payment.Currency,
				SessionID:       payment.SessionID,
				PaymentIntentID: session.PaymentIntentID,
				PaidAt:          now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment confirmed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentConfirmed(pkg.Name)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id":    sessionID,
			"package_name":  pkg.Name,
			"package_limit": packageLimit,
		})
		s.logg.Info(logCtx, "payment confirmed")
	}
	return &ConfirmResult{
		Payment:      FromModel(payment),
		PackageLimit: packageLimit,
		Subscription: pkg.Name,
	}, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, params pagination.Params) (types.Page[PaymentDTO], error) {
	if actor.Role != enums.UserRoleHR {
		return types.Page[PaymentDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, "hr role required")
	}
	rows, next, err := s.repo.ListForHR(ctx, actor.Email, params)
	if err != nil {
		return types.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	items := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return types.NewPage(items, next), nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
