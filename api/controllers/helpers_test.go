package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/assetflow-backend/api/middleware"
	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func employeeCtx(email string) context.Context {
	ctx := middleware.WithEmail(context.Background(), email)
	return middleware.WithRole(ctx, string(enums.UserRoleEmployee))
}

func hrCtx(email, company string) context.Context {
	ctx := middleware.WithEmail(context.Background(), email)
	ctx = middleware.WithRole(ctx, string(enums.UserRoleHR))
	return middleware.WithHRUser(ctx, &models.User{Email: email, Role: enums.UserRoleHR, CompanyName: &company})
}

func withURLParams(ctx context.Context, params map[string]string) context.Context {
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return context.WithValue(ctx, chi.RouteCtxKey, rc)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var payload types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return payload
}
