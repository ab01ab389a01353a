package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/app"
	iauth "github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/auth/providers"
	"github.com/charlesng35/itemhub/internal/handlers"
	"github.com/charlesng35/itemhub/internal/middleware"
	"github.com/charlesng35/itemhub/internal/services"
)

const defaultMetricsEndpoint = "/metrics"

// RouterOption customises optional router wiring.
type RouterOption func(*routerOptions)

type routerOptions struct {
	healthChecks map[string]handlers.HealthCheck
}

// WithHealthCheck adds a named dependency probe to the /health endpoint.
func WithHealthCheck(name string, check handlers.HealthCheck) RouterOption {
	return func(o *routerOptions) {
		if o.healthChecks == nil {
			o.healthChecks = make(map[string]handlers.HealthCheck)
		}
		o.healthChecks[name] = check
	}
}

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(db *gorm.DB, cfg *app.Config, sessions *iauth.SessionService, rateStore middleware.RateStore, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	options := routerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, db, options.healthChecks)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	local, err := providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, err
	}
	authHandler, err := handlers.NewAuthHandler(local, sessions)
	if err != nil {
		return nil, err
	}

	userSvc, err := services.NewUserService(db, sessions)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(userSvc, cfg.Auth.UsersOpenRegistration)
	if err != nil {
		return nil, err
	}

	itemSvc, err := services.NewItemService(db)
	if err != nil {
		return nil, err
	}
	itemHandler, err := handlers.NewItemHandler(itemSvc)
	if err != nil {
		return nil, err
	}

	v1 := r.Group("/api/v1")
	requireAuth := middleware.Auth(sessions.Codec(), userSvc)

	registerAuthRoutes(v1, authHandler, requireAuth)
	registerUserRoutes(v1, userHandler, requireAuth)
	registerItemRoutes(v1, itemHandler, requireAuth)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg app.PrometheusConfig) {
	if !cfg.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultMetricsEndpoint
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
