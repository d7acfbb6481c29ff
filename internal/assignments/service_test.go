package assignments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/internal/affiliations"
	"github.com/angelmondragon/assetflow-backend/internal/assets"
	"github.com/angelmondragon/assetflow-backend/internal/policy"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox"
	"github.com/angelmondragon/assetflow-backend/pkg/pagination"
)

type stubLocker struct {
	held     map[string]bool
	failWith error
	released []string
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: map[string]bool{}}
}

func (l *stubLocker) LockKey(scope string, parts ...string) string {
	key := "lock:" + scope
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (l *stubLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.failWith != nil {
		return "", false, l.failWith
	}
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "token", true, nil
}

func (l *stubLocker) ReleaseLock(_ context.Context, key, _ string) error {
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

type fixture struct {
	conn   *gorm.DB
	svc    Service
	locker *stubLocker
	asset  *models.Asset
}

var (
	hrActor  = policy.Actor{Email: "hr@acme.io", Role: enums.UserRoleHR, Company: "acme"}
	anaActor = policy.Actor{Email: "ana@mail.io", Role: enums.UserRoleEmployee}
)

func newFixture(t *testing.T, available int) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	company := "acme"
	dbtest.CreateUser(t, conn, &models.User{
		Email: "hr@acme.io", Name: "Helen", Role: enums.UserRoleHR, CompanyName: &company,
		PackageLimit: 5, CurrentEmployees: 1, Subscription: "basic",
	})
	asset := dbtest.CreateAsset(t, conn, &models.Asset{
		ProductName: "Laptop", ProductType: enums.AssetTypeReturnable,
		ProductQuantity: 3, AvailableQuantity: available,
		HREmail: "hr@acme.io", CompanyName: "acme",
	})
	if err := conn.Create(&models.Affiliation{
		EmployeeEmail: "ana@mail.io", EmployeeName: "Ana", HREmail: "hr@acme.io",
		CompanyName: "acme", Status: enums.AffiliationStatusActive, AffiliatedAt: time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("seed affiliation: %v", err)
	}

	locker := newStubLocker()
	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Assets:       assets.NewRepository(conn),
		Inventory:    assets.NewInventory(),
		Affiliations: affiliations.NewRepository(conn),
		Tx:           db.FromConn(conn),
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Policy:       policy.NewGatekeeper(),
		Locker:       locker,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return fixture{conn: conn, svc: svc, locker: locker, asset: asset}
}

func (f fixture) available(t *testing.T) int {
	t.Helper()
	var asset models.Asset
	if err := f.conn.First(&asset, "id = ?", f.asset.ID).Error; err != nil {
		t.Fatalf("reload asset: %v", err)
	}
	return asset.AvailableQuantity
}

func (f fixture) directAssign(email string) (*AssignmentDTO, error) {
	return f.svc.DirectAssign(context.Background(), hrActor, DirectAssignInput{
		AssetID: f.asset.ID.String(), EmployeeEmail: email,
	})
}

func TestDirectAssignTakesStockAndReleasesLock(t *testing.T) {
	f := newFixture(t, 3)

	dto, err := f.directAssign("Ana@Mail.io")
	if err != nil {
		t.Fatalf("direct assign: %v", err)
	}
	if dto.Source != enums.AssignmentSourceDirect || dto.EmployeeName != "Ana" || dto.Status != enums.AssignmentStatusAssigned {
		t.Fatalf("unexpected assignment %+v", dto)
	}
	if got := f.available(t); got != 2 {
		t.Fatalf("expected 2 available, got %d", got)
	}
	if len(f.locker.held) != 0 || len(f.locker.released) != 1 {
		t.Fatalf("lock not released: held=%v released=%v", f.locker.held, f.locker.released)
	}

	_, err = f.directAssign("ana@mail.io")
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyAssigned) {
		t.Fatalf("expected already assigned, got %v", err)
	}
	if got := f.available(t); got != 2 {
		t.Fatalf("failed assignment moved stock: %d", got)
	}
}

func TestDirectAssignGuards(t *testing.T) {
	f := newFixture(t, 3)

	if _, err := f.directAssign("bob@mail.io"); !pkgerrors.IsCode(err, pkgerrors.CodeNotAffiliated) {
		t.Fatalf("expected not affiliated, got %v", err)
	}

	_, err := f.svc.DirectAssign(context.Background(), hrActor, DirectAssignInput{AssetID: uuid.NewString(), EmployeeEmail: "ana@mail.io"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	other := policy.Actor{Email: "hr@globex.io", Role: enums.UserRoleHR, Company: "globex"}
	_, err = f.svc.DirectAssign(context.Background(), other, DirectAssignInput{AssetID: f.asset.ID.String(), EmployeeEmail: "ana@mail.io"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	f.locker.held[f.locker.LockKey("assign", f.asset.ID.String(), "ana@mail.io")] = true
	if _, err := f.directAssign("ana@mail.io"); !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyAssigned) {
		t.Fatalf("expected in-flight lock to block, got %v", err)
	}

	f.locker.held = map[string]bool{}
	f.locker.failWith = errors.New("redis down")
	if _, err := f.directAssign("ana@mail.io"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDirectAssignOutOfStock(t *testing.T) {
	f := newFixture(t, 0)
	if _, err := f.directAssign("ana@mail.io"); !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestReturnRestocksOnceAndOnlyForAssignee(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	dto, err := f.directAssign("ana@mail.io")
	if err != nil {
		t.Fatalf("direct assign: %v", err)
	}

	bob := policy.Actor{Email: "bob@mail.io", Role: enums.UserRoleEmployee}
	if _, err := f.svc.Return(ctx, bob, dto.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-assignee, got %v", err)
	}

	returned, err := f.svc.Return(ctx, anaActor, dto.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != enums.AssignmentStatusReturned || returned.ReturnedAt == nil {
		t.Fatalf("unexpected returned assignment %+v", returned)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("expected 3 available, got %d", got)
	}

	if _, err := f.svc.Return(ctx, anaActor, dto.ID); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state on second return, got %v", err)
	}
	if _, err := f.svc.Return(ctx, bob, dto.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-assignee must get forbidden even after return, got %v", err)
	}
	if _, err := f.svc.Return(ctx, anaActor, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReturnAllForEmployee(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	if _, err := f.directAssign("ana@mail.io"); err != nil {
		t.Fatalf("direct assign: %v", err)
	}

	var count int
	err := db.FromConn(f.conn).WithTx(ctx, func(tx *gorm.DB) error {
		n, err := f.svc.ReturnAllForEmployee(ctx, tx, "ana@mail.io", "acme", nil)
		count = n
		return err
	})
	if err != nil {
		t.Fatalf("return all: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 returned, got %d", count)
	}
	if got := f.available(t); got != 3 {
		t.Fatalf("expected full stock, got %d", got)
	}

	var events []models.OutboxEvent
	if err := f.conn.Where("event_type = ?", enums.EventAssetReturned).Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one asset_returned event, got %d", len(events))
	}
}

func TestListMineAndCompany(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	dto, err := f.directAssign("ana@mail.io")
	if err != nil {
		t.Fatalf("direct assign: %v", err)
	}
	if _, err := f.svc.Return(ctx, anaActor, dto.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := f.directAssign("ana@mail.io"); err != nil {
		t.Fatalf("reassign after return: %v", err)
	}

	page, err := f.svc.ListMine(ctx, anaActor, ListFilters{}, pagination.Params{})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(page.Items))
	}

	assigned := enums.AssignmentStatusAssigned
	page, err = f.svc.ListCompany(ctx, hrActor, ListFilters{Status: &assigned, EmployeeEmail: "ANA@mail.io"}, pagination.Params{})
	if err != nil {
		t.Fatalf("list company: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Status != enums.AssignmentStatusAssigned {
		t.Fatalf("unexpected company page %+v", page.Items)
	}

	if _, err := f.svc.ListCompany(ctx, anaActor, ListFilters{}, pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for employee, got %v", err)
	}
}
