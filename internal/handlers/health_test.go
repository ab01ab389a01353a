package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	sharedtestutil "github.com/charlesng35/itemhub/internal/database/testutil"
	"github.com/charlesng35/itemhub/internal/handlers"
	"github.com/charlesng35/itemhub/internal/handlers/testutil"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := sharedtestutil.MustOpenTestDB(t)

	r := gin.New()
	r.GET("/ok", handlers.Health(db, nil))
	r.GET("/degraded", handlers.Health(db, map[string]handlers.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]any
	body := testutil.DecodeResponse(t, rec)
	require.True(t, body.Success)
	testutil.DecodeInto(t, body.Data, &payload)
	require.Equal(t, "ok", payload["status"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body = testutil.DecodeResponse(t, rec)
	require.False(t, body.Success)
	testutil.DecodeInto(t, body.Data, &payload)
	require.Equal(t, "degraded", payload["status"])
	require.Equal(t, map[string]any{"database": "ok", "redis": "unavailable"}, payload["checks"])
	require.NotContains(t, rec.Body.String(), "connection refused")
}
