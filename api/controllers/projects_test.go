package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reelbrand-ai/reelbrand-backend/api/middleware"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestCreateProjectRequiresUserContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	CreateProject(nil, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProjectRejectsUnknownFields(t *testing.T) {
	body := `{"video_model":"kling","aspect_ratio":"16:9","bogus":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CreateProject(nil, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProjectRejectsUnknownVideoModel(t *testing.T) {
	body := `{"video_model":"betamax","aspect_ratio":"16:9","is_segmented":true,"segment_count":3,"segment_duration_seconds":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CreateProject(nil, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProjectRejectsMalformedID(t *testing.T) {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("projectID", "not-a-uuid")

	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/not-a-uuid", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	GetProject(nil, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveSegmentVideoRequiresApprovedField(t *testing.T) {
	projectID := uuid.New()
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("projectID", projectID.String())
	routeCtx.URLParams.Add("segmentIndex", "1")

	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/v1/projects/"+projectID.String()+"/segments/1/approval",
		strings.NewReader(`{}`),
	).WithContext(ctx)
	rec := httptest.NewRecorder()

	ApproveSegmentVideo(nil, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
