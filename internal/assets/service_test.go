package assets

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
)

type stubAffiliations struct {
	companies map[string][]string
}

func (s stubAffiliations) ActiveCompanies(_ context.Context, email string) ([]string, error) {
	return s.companies[email], nil
}

type fixture struct {
	conn *gorm.DB
	svc  Service
	hr   *models.User
}

var (
	hrActor       = policy.Actor{Email: "hr@acme.io", Role: enums.UserRoleHR, Company: "acme"}
	otherHRActor  = policy.Actor{Email: "hr@globex.io", Role: enums.UserRoleHR, Company: "globex"}
	employeeActor = policy.Actor{Email: "ana@mail.io", Role: enums.UserRoleEmployee}
)

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	company := "acme"
	hr := dbtest.CreateUser(t, conn, &models.User{
		Email: "hr@acme.io", Name: "Helen", Role: enums.UserRoleHR, CompanyName: &company,
		PackageLimit: 5, Subscription: "basic",
	})
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Tx:           db.FromConn(conn),
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Policy:       policy.NewGatekeeper(),
		Affiliations: stubAffiliations{companies: map[string][]string{"ana@mail.io": {"acme"}}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return fixture{conn: conn, svc: svc, hr: hr}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreateCopiesOwnershipFromHR(t *testing.T) {
	f := newFixture(t)

	asset, err := f.svc.Create(context.Background(), f.hr, CreateAssetInput{
		ProductName: " Laptop ", ProductType: "Returnable", ProductQuantity: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if asset.AvailableQuantity != 3 || asset.HREmail != "hr@acme.io" || asset.CompanyName != "acme" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.ProductName != "Laptop" {
		t.Fatalf("expected trimmed name, got %q", asset.ProductName)
	}
}

func TestCreateRejectsBadType(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.hr, CreateAssetInput{ProductName: "Laptop", ProductType: "Borrowable", ProductQuantity: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateShiftsAvailableByDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asset := seedAsset(t, f.conn, "Laptop", "acme", 5, 3)

	updated, err := f.svc.Update(ctx, hrActor, asset.ID, UpdateAssetInput{ProductQuantity: intPtr(8)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ProductQuantity != 8 || updated.AvailableQuantity != 6 {
		t.Fatalf("unexpected quantities %d/%d", updated.AvailableQuantity, updated.ProductQuantity)
	}

	updated, err = f.svc.Update(ctx, hrActor, asset.ID, UpdateAssetInput{ProductQuantity: intPtr(2)})
	if err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if updated.ProductQuantity != 2 || updated.AvailableQuantity != 0 {
		t.Fatalf("unexpected quantities after shrink %d/%d", updated.AvailableQuantity, updated.ProductQuantity)
	}
}

func TestUpdateRejectsQuantityBelowAssigned(t *testing.T) {
	f := newFixture(t)
	asset := seedAsset(t, f.conn, "Laptop", "acme", 5, 3)

	_, err := f.svc.Update(context.Background(), hrActor, asset.ID, UpdateAssetInput{ProductQuantity: intPtr(1)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	asset := seedAsset(t, f.conn, "Laptop", "acme", 5, 5)

	_, err := f.svc.Update(context.Background(), otherHRActor, asset.ID, UpdateAssetInput{ProductName: strPtr("Mine now")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestShiftQuantities(t *testing.T) {
	current := &models.Asset{ProductQuantity: 4, AvailableQuantity: 1}
	if _, _, err := shiftQuantities(current, -1); err == nil {
		t.Fatal("expected negative quantity to fail")
	}
	product, available, err := shiftQuantities(current, 3)
	if err != nil || product != 3 || available != 0 {
		t.Fatalf("unexpected shift %d/%d err=%v", product, available, err)
	}
}

func TestDeleteBlockedByActiveAssignment(t *testing.T) {
	f := newFixture(t)
	asset := seedAsset(t, f.conn, "Laptop", "acme", 2, 1)
	if err := f.conn.Create(&models.Assignment{
		AssetID: asset.ID, AssetName: asset.ProductName, AssetType: asset.ProductType,
		EmployeeEmail: "ana@mail.io", EmployeeName: "Ana", HREmail: "hr@acme.io", CompanyName: "acme",
		Source: enums.AssignmentSourceDirect, Status: enums.AssignmentStatusAssigned,
	}).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	err := f.svc.Delete(context.Background(), hrActor, asset.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteRejectsPendingRequests(t *testing.T) {
	f := newFixture(t)
	asset := seedAsset(t, f.conn, "Laptop", "acme", 2, 2)
	req := &models.AssetRequest{
		AssetID: asset.ID, AssetName: asset.ProductName, AssetType: asset.ProductType,
		RequesterEmail: "ana@mail.io", RequesterName: "Ana", HREmail: "hr@acme.io", CompanyName: "acme",
		Status: enums.RequestStatusPending,
	}
	if err := f.conn.Create(req).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}

	if err := f.svc.Delete(context.Background(), hrActor, asset.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var stored models.AssetRequest
	if err := f.conn.First(&stored, "id = ?", req.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if stored.Status != enums.RequestStatusRejected || stored.DecidedBy == nil || *stored.DecidedBy != "hr@acme.io" {
		t.Fatalf("request not rejected: %+v", stored)
	}

	var events []models.OutboxEvent
	if err := f.conn.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventRequestRejected {
		t.Fatalf("expected one request_rejected event, got %+v", events)
	}

	var count int64
	f.conn.Model(&models.Asset{}).Where("id = ?", asset.ID).Count(&count)
	if count != 0 {
		t.Fatal("asset still present")
	}
}

func TestDeleteMissingAsset(t *testing.T) {
	f := newFixture(t)
	asset := seedAsset(t, f.conn, "Laptop", "acme", 1, 1)
	if err := f.svc.Delete(context.Background(), hrActor, asset.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := f.svc.Delete(context.Background(), hrActor, asset.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedAsset(t, f.conn, "Laptop", "acme", 2, 2)
	seedAsset(t, f.conn, "Phone", "globex", 2, 2)

	page, err := f.svc.List(ctx, employeeActor, ListFilters{}, pagination.Params{})
	if err != nil {
		t.Fatalf("employee list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].CompanyName != "acme" {
		t.Fatalf("employee should only see affiliated companies: %+v", page.Items)
	}

	stranger := policy.Actor{Email: "bob@mail.io", Role: enums.UserRoleEmployee}
	page, err = f.svc.List(ctx, stranger, ListFilters{}, pagination.Params{})
	if err != nil {
		t.Fatalf("stranger list: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %+v", page.Items)
	}

	page, err = f.svc.List(ctx, otherHRActor, ListFilters{}, pagination.Params{})
	if err != nil {
		t.Fatalf("hr list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ProductName != "Phone" {
		t.Fatalf("hr should see own inventory: %+v", page.Items)
	}

	page, err = f.svc.ListAvailable(ctx, ListFilters{Company: "globex"}, pagination.Params{})
	if err != nil {
		t.Fatalf("available list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected company filter to apply: %+v", page.Items)
	}
}

func TestGetHidesForeignInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asset := seedAsset(t, f.conn, "Laptop", "acme", 1, 0)

	if _, err := f.svc.Get(ctx, employeeActor, asset.ID); err != nil {
		t.Fatalf("affiliated employee: %v", err)
	}
	stranger := policy.Actor{Email: "bob@mail.io", Role: enums.UserRoleEmployee}
	if _, err := f.svc.Get(ctx, stranger, asset.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
	if _, err := f.svc.Get(ctx, otherHRActor, asset.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign hr, got %v", err)
	}
}
