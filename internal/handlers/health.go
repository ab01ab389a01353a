package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database"
	"github.com/charlesng35/itemhub/pkg/logger"
	"github.com/charlesng35/itemhub/pkg/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes a single dependency.
type HealthCheck func(ctx context.Context) error

// Health pings the database plus any extra dependencies and reports their status.
// Any failing check turns the response into a 503.
func Health(db *gorm.DB, extra map[string]HealthCheck) gin.HandlerFunc {
	checks := map[string]HealthCheck{
		"database": func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	}
	for name, check := range extra {
		if check != nil {
			checks[name] = check
		}
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		results := make(map[string]string, len(names))
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				healthy = false
				results[name] = "unavailable"
				logger.WithModule("health").Warn("health check failed", zap.String("check", name), zap.Error(err))
				continue
			}
			results[name] = "ok"
		}

		payload := gin.H{
			"status":     "ok",
			"checks":     results,
			"checked_at": time.Now().UTC(),
		}
		if healthy {
			response.Success(c, http.StatusOK, payload)
			return
		}

		payload["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Success: false,
			Data:    payload,
			Error: &response.ErrorInfo{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "One or more dependencies are unavailable",
			},
		})
	}
}
