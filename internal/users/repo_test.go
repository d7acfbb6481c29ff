package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assetflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

func seedHR(t *testing.T, repo *Repository, email string, limit, current int) {
	t.Helper()
	company := "Acme"
	require.NoError(t, repo.Create(context.Background(), &models.User{
		Email:            email,
		Name:             "HR",
		Role:             enums.UserRoleHR,
		CompanyName:      &company,
		PackageLimit:     limit,
		CurrentEmployees: current,
		Subscription:     "basic",
	}))
}

func TestReserveSeatStopsAtPackageLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	seedHR(t, repo, "hr@acme.io", 2, 0)

	for i := 0; i < 2; i++ {
		ok, err := repo.ReserveSeat(ctx, "hr@acme.io")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.ReserveSeat(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := repo.FindByEmail(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 2, user.CurrentEmployees)
}

func TestReserveSeatUnlimitedWhenLimitZero(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	seedHR(t, repo, "hr@acme.io", 0, 40)

	ok, err := repo.ReserveSeat(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseSeatFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	seedHR(t, repo, "hr@acme.io", 5, 1)

	ok, err := repo.ReleaseSeat(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ReleaseSeat(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := repo.FindByEmail(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 0, user.CurrentEmployees)
}

func TestApplyPackageOnlyTouchesHR(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	seedHR(t, repo, "hr@acme.io", 5, 0)
	require.NoError(t, repo.Create(ctx, &models.User{Email: "ana@mail.io", Name: "Ana", Role: enums.UserRoleEmployee}))

	require.NoError(t, repo.ApplyPackage(ctx, "hr@acme.io", 15, "standard"))
	user, err := repo.FindByEmail(ctx, "hr@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 15, user.PackageLimit)
	assert.Equal(t, "standard", user.Subscription)

	assert.Error(t, repo.ApplyPackage(ctx, "ana@mail.io", 15, "standard"))
}

func TestReconcileSeatCountsMatchesActiveAffiliations(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	seedHR(t, repo, "drift@acme.io", 10, 7)
	seedHR(t, repo, "exact@acme.io", 10, 1)

	affiliations := []models.Affiliation{
		{EmployeeEmail: "a@mail.io", EmployeeName: "A", HREmail: "drift@acme.io", CompanyName: "Drift", Status: enums.AffiliationStatusActive},
		{EmployeeEmail: "b@mail.io", EmployeeName: "B", HREmail: "drift@acme.io", CompanyName: "Drift", Status: enums.AffiliationStatusActive},
		{EmployeeEmail: "c@mail.io", EmployeeName: "C", HREmail: "drift@acme.io", CompanyName: "Drift", Status: enums.AffiliationStatusInactive},
		{EmployeeEmail: "a@mail.io", EmployeeName: "A", HREmail: "exact@acme.io", CompanyName: "Exact", Status: enums.AffiliationStatusActive},
	}
	for i := range affiliations {
		affiliations[i].AffiliatedAt = time.Now().UTC()
		require.NoError(t, conn.Create(&affiliations[i]).Error)
	}

	corrected, err := repo.ReconcileSeatCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), corrected)

	drift, err := repo.FindByEmail(ctx, "drift@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 2, drift.CurrentEmployees)
	exact, err := repo.FindByEmail(ctx, "exact@acme.io")
	require.NoError(t, err)
	assert.Equal(t, 1, exact.CurrentEmployees)

	corrected, err = repo.ReconcileSeatCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}
