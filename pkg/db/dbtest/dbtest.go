// Package dbtest opens sqlite databases shaped like the Postgres schema for
// repository and service tests.
package dbtest

import (
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
)

var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_asset_requests_pending ON asset_requests (asset_id, requester_email) WHERE status = 'pending'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_assignments_direct_active ON assignments (asset_id, employee_email) WHERE status = 'assigned' AND source = 'direct'`,
}

// Open returns an isolated in-memory database with every table migrated.
// A single connection is kept so the shared cache never reports table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.AssetRequest{},
		&models.Assignment{},
		&models.Affiliation{},
		&models.Package{},
		&models.Payment{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	for _, stmt := range partialIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create index: %v", err)
		}
	}
	return conn
}

// SeedPackages inserts the same catalog the migrations seed.
func SeedPackages(t testing.TB, conn *gorm.DB) []models.Package {
	t.Helper()
	packages := []models.Package{
		{Name: "basic", EmployeeLimit: 5, PriceCents: 500, Description: "Up to 5 additional employees"},
		{Name: "standard", EmployeeLimit: 10, PriceCents: 800, Description: "Up to 10 additional employees"},
		{Name: "premium", EmployeeLimit: 20, PriceCents: 1500, Description: "Up to 20 additional employees"},
	}
	if err := conn.Create(&packages).Error; err != nil {
		t.Fatalf("failed to seed packages: %v", err)
	}
	return packages
}

func CreateUser(t testing.TB, conn *gorm.DB, user *models.User) *models.User {
	t.Helper()
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func CreateAsset(t testing.TB, conn *gorm.DB, asset *models.Asset) *models.Asset {
	t.Helper()
	if err := conn.Create(asset).Error; err != nil {
		t.Fatalf("failed to create asset: %v", err)
	}
	return asset
}
