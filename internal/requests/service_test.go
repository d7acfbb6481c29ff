package requests

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/internal/assignments"
	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/internal/users"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
)

type noopLocker struct{}

func (noopLocker) LockKey(scope string, parts ...string) string { return scope }
func (noopLocker) AcquireLock(context.Context, string, time.Duration) (string, bool, error) {
	return "t", true, nil
}
func (noopLocker) ReleaseLock(context.Context, string, string) error { return nil }

type fixture struct {
	conn        *gorm.DB
	svc         Service
	assignments assignments.Service
	asset       *models.Asset
}

var (
	hrActor  = policy.Actor{Email: "hr@acme.io", Role: enums.UserRoleHR, Company: "acme"}
	anaActor = policy.Actor{Email: "ana@mail.io", Role: enums.UserRoleEmployee}
)

func newFixture(t *testing.T, limit, current int) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	company := "acme"
	dbtest.CreateUser(t, conn, &models.User{
		Email: "hr@acme.io", Name: "Helen", Role: enums.UserRoleHR, CompanyName: &company,
		PackageLimit: limit, CurrentEmployees: current, Subscription: "basic",
	})
	dbtest.CreateUser(t, conn, &models.User{Email: "ana@mail.io", Name: "Ana", Role: enums.UserRoleEmployee})
	asset := dbtest.CreateAsset(t, conn, &models.Asset{
		ProductName: "Laptop", ProductType: enums.AssetTypeReturnable,
		ProductQuantity: 3, AvailableQuantity: 3,
		HREmail: "hr@acme.io", CompanyName: "acme",
	})

	tx := db.FromConn(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	gate := policy.NewGatekeeper()
	assetRepo := assets.NewRepository(conn)
	userRepo := users.NewRepository(conn)
	affRepo := affiliations.NewRepository(conn)

	assignSvc, err := assignments.NewService(assignments.ServiceParams{
		Repo:         assignments.NewRepository(conn),
		Assets:       assetRepo,
		Inventory:    assets.NewInventory(),
		Affiliations: affRepo,
		Tx:           tx,
		Outbox:       events,
		Policy:       gate,
		Locker:       noopLocker{},
	})
	if err != nil {
		t.Fatalf("assignments service: %v", err)
	}
	affSvc, err := affiliations.NewService(affiliations.ServiceParams{
		Repo:        affRepo,
		Users:       userRepo,
		Tx:          tx,
		Outbox:      events,
		Policy:      gate,
		Assignments: assignSvc,
	})
	if err != nil {
		t.Fatalf("affiliations service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Assets:       assetRepo,
		Users:        userRepo,
		Affiliations: affSvc,
		Assignments:  assignSvc,
		Tx:           tx,
		Outbox:       events,
		Policy:       gate,
	})
	if err != nil {
		t.Fatalf("requests service: %v", err)
	}
	return fixture{conn: conn, svc: svc, assignments: assignSvc, asset: asset}
}

func (f fixture) available(t *testing.T) int {
	t.Helper()
	var asset models.Asset
	if err := f.conn.First(&asset, "id = ?", f.asset.ID).Error; err != nil {
		t.Fatalf("reload asset: %v", err)
	}
	return asset.AvailableQuantity
}

func (f fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (f fixture) request(t *testing.T) *RequestDTO {
	t.Helper()
	req, err := f.svc.Create(context.Background(), anaActor, CreateRequestInput{AssetID: f.asset.ID.String()})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func TestApproveAssignAndReturnLifecycle(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()

	req := f.request(t)
	if req.Status != enums.RequestStatusPending || req.RequesterName != "Ana" || req.CompanyName != "acme" {
		t.Fatalf("unexpected request %+v", req)
	}

	result, err := f.svc.Decide(ctx, hrActor, DecideInput{RequestID: req.ID.String(), Status: "approved"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.Request.Status != enums.RequestStatusApproved || result.AssignmentID == nil {
		t.Fatalf("unexpected decision %+v", result)
	}
	if got := f.available(t); got != 2 {
		t.Fatalf("expected 2 available after approval, got %d", got)
	}
	var hr models.User
	if err := f.conn.First(&hr, "email = ?", "hr@acme.io").Error; err != nil {
		t.Fatalf("reload hr: %v", err)
	}
	if hr.CurrentEmployees != 1 {
		t.Fatalf("expected 1 employee, got %d", hr.CurrentEmployees)
	}

	_, err = f.svc.Decide(ctx, hrActor, DecideInput{RequestID: req.ID.String(), Status: "approved"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state on second approval, got %v", err)
	}
	if got := f.available(t); got != 2 {
		t.Fatalf("second approval moved stock: %d", got)
	}

	returned, err := f.assignments.Return(ctx, anaActor, *result.AssignmentID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != enums.AssignmentStatusReturned {
		t.Fatalf("assignment not returned: %+v", returned)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("expected 3 available after return, got %d", got)
	}

	var eventTypes []enums.OutboxEventType
	if err := f.conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("event_type", &eventTypes).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	want := map[enums.OutboxEventType]bool{
		enums.EventRequestCreated:       false,
		enums.EventAffiliationActivated: false,
		enums.EventAssetAssigned:        false,
		enums.EventRequestApproved:      false,
		enums.EventAssetReturned:        false,
	}
	for _, typ := range eventTypes {
		want[typ] = true
	}
	for typ, seen := range want {
		if !seen {
			t.Fatalf("missing %s event in %v", typ, eventTypes)
		}
	}
}

func TestApproveRepeatRequestHandsOutAnotherUnit(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()

	first := f.request(t)
	if _, err := f.svc.Decide(ctx, hrActor, DecideInput{RequestID: first.ID.String(), Status: "approved"}); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	second := f.request(t)
	result, err := f.svc.Decide(ctx, hrActor, DecideInput{RequestID: second.ID.String(), Status: "approved"})
	if err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if result.AssignmentID == nil {
		t.Fatalf("expected an assignment for the second approval")
	}
	if got := f.available(t); got != 1 {
		t.Fatalf("expected 1 available after two approvals, got %d", got)
	}
	var held int64
	if err := f.conn.Model(&models.Assignment{}).
		Where("asset_id = ? AND employee_email = ? AND status = ?", f.asset.ID, "ana@mail.io", enums.AssignmentStatusAssigned).
		Count(&held).Error; err != nil {
		t.Fatalf("count assignments: %v", err)
	}
	if held != 2 {
		t.Fatalf("expected 2 active assignments, got %d", held)
	}
	var hr models.User
	if err := f.conn.First(&hr, "email = ?", "hr@acme.io").Error; err != nil {
		t.Fatalf("reload hr: %v", err)
	}
	if hr.CurrentEmployees != 1 {
		t.Fatalf("existing affiliation must not take another seat, got %d", hr.CurrentEmployees)
	}
}

func TestApproveAtPackageLimitLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 5, 5)
	req := f.request(t)

	_, err := f.svc.Decide(context.Background(), hrActor, DecideInput{RequestID: req.ID.String(), Status: "approved"})
	if !pkgerrors.IsCode(err, pkgerrors.CodePackageLimit) {
		t.Fatalf("expected package limit, got %v", err)
	}
	if n := f.count(t, &models.Assignment{}); n != 0 {
		t.Fatalf("expected no assignment, got %d", n)
	}
	if n := f.count(t, &models.Affiliation{}); n != 0 {
		t.Fatalf("expected no affiliation, got %d", n)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("stock moved: %d", got)
	}
	var stored models.AssetRequest
	if err := f.conn.First(&stored, "id = ?", req.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if stored.Status != enums.RequestStatusPending {
		t.Fatalf("request left pending expected, got %s", stored.Status)
	}
}

func TestApproveOutOfStock(t *testing.T) {
	f := newFixture(t, 5, 0)
	req := f.request(t)
	if err := f.conn.Model(&models.Asset{}).Where("id = ?", f.asset.ID).UpdateColumn("available_quantity", 0).Error; err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err := f.svc.Decide(context.Background(), hrActor, DecideInput{RequestID: req.ID.String(), Status: "approved"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
	if n := f.count(t, &models.Affiliation{}); n != 0 {
		t.Fatalf("affiliation created on failed approval: %d", n)
	}
}

func TestRejectLeavesInventory(t *testing.T) {
	f := newFixture(t, 5, 0)
	req := f.request(t)

	result, err := f.svc.Decide(context.Background(), hrActor, DecideInput{RequestID: req.ID.String(), Status: "rejected"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if result.Request.Status != enums.RequestStatusRejected || result.AssignmentID != nil {
		t.Fatalf("unexpected decision %+v", result)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("reject moved stock: %d", got)
	}

	other := policy.Actor{Email: "hr@globex.io", Role: enums.UserRoleHR, Company: "globex"}
	next := f.request(t)
	if _, err := f.svc.Decide(context.Background(), other, DecideInput{RequestID: next.ID.String(), Status: "rejected"}); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign hr, got %v", err)
	}
}

func TestCreateGuards(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()
	f.request(t)

	_, err := f.svc.Create(ctx, anaActor, CreateRequestInput{AssetID: f.asset.ID.String()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDuplicateRequest) {
		t.Fatalf("expected duplicate request, got %v", err)
	}

	_, err = f.svc.Create(ctx, hrActor, CreateRequestInput{AssetID: f.asset.ID.String()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected hr to be refused, got %v", err)
	}

	_, err = f.svc.Create(ctx, anaActor, CreateRequestInput{AssetID: "not-a-uuid"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListScopesAndSearch(t *testing.T) {
	f := newFixture(t, 5, 0)
	ctx := context.Background()
	f.request(t)

	page, err := f.svc.List(ctx, hrActor, ListFilters{Search: "ANA"}, pagination.Params{})
	if err != nil {
		t.Fatalf("hr list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 request, got %d", len(page.Items))
	}

	page, err = f.svc.List(ctx, hrActor, ListFilters{Search: "monitor"}, pagination.Params{})
	if err != nil {
		t.Fatalf("hr search: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected no match, got %+v", page.Items)
	}

	bob := policy.Actor{Email: "bob@mail.io", Role: enums.UserRoleEmployee}
	page, err = f.svc.List(ctx, bob, ListFilters{}, pagination.Params{})
	if err != nil {
		t.Fatalf("employee list: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("employee saw foreign requests: %+v", page.Items)
	}
}
