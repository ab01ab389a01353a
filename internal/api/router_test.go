package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/itemhub/internal/app"
	iauth "github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/database/testutil"
	"github.com/charlesng35/itemhub/internal/middleware"
)

func newTestRouter(t *testing.T, mutate func(cfg *app.Config), opts ...RouterOption) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "router-test-secret", Issuer: "test", TTL: 15 * time.Minute},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	codec, err := iauth.NewTokenCodec(cfg.Auth.TokenConfig())
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(iauth.NewMemorySessionStore(), codec, iauth.SessionConfig{})
	require.NoError(t, err)

	router, err := NewRouter(db, cfg, sessions, middleware.NewMemoryRateStore(), opts...)
	require.NoError(t, err)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/health").Code)

	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/api/v1/login/test-token").Code)
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/users").Code)
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/users/me").Code)
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/items").Code)
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/login/sessions").Code)

	// public endpoints reach their handlers and fail validation instead of auth
	require.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/v1/login/").Code)
	require.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/v1/login/update-token").Code)

	rec := serve(router, http.MethodGet, "/api/v1/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)

	rec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "itemhub_api_latency_seconds"), "expected latency histogram in metrics output")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := newTestRouter(t, func(cfg *app.Config) {
		cfg.Monitoring.Prometheus.Enabled = false
	})

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}

func TestRouter_HealthChecksAndRateLimit(t *testing.T) {
	router := newTestRouter(t, func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: 2, Window: time.Minute}
	}, WithHealthCheck("redis", func(context.Context) error { return errors.New("down") }))

	first := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, first.Code)
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	serve(router, http.MethodGet, "/health")
	limited := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.NotEmpty(t, limited.Header().Get("Retry-After"))
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	_, err := NewRouter(nil, &app.Config{}, nil, nil)
	require.Error(t, err)
}
