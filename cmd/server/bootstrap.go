package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/api"
	"github.com/charlesng35/itemhub/internal/app"
	"github.com/charlesng35/itemhub/internal/app/maintenance"
	iauth "github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/cache"
	"github.com/charlesng35/itemhub/internal/database"
	"github.com/charlesng35/itemhub/internal/middleware"
	"github.com/charlesng35/itemhub/pkg/logger"
)

const defaultMongoTimeout = 10 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Mongo     *mongo.Client
	Sessions  *iauth.SessionService
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := app.PersistGeneratedSecrets(ctx, stack.DB, cfg, generated); err != nil {
		return nil, err
	}

	storeKind := cfg.Auth.SessionStoreKind()

	if cfg.Cache.Redis.Enabled || storeKind == iauth.StoreRedis {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			if storeKind == iauth.StoreRedis {
				return nil, fmt.Errorf("connect redis session store: %w", err)
			}
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	codec, err := iauth.NewTokenCodec(cfg.Auth.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token codec: %w", err)
	}

	store, err := stack.sessionStore(ctx, cfg, storeKind)
	if err != nil {
		return nil, err
	}
	log.Info("session store ready", zap.String("store", storeKind))

	stack.Sessions, err = iauth.NewSessionService(store, codec, iauth.SessionConfig{})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	var (
		counter cache.Counter
		purger  cache.Purger
	)
	if stack.Redis != nil {
		counter = cache.NewRedisCounter(stack.Redis)
	} else {
		dbCounter := cache.NewDatabaseCounter(stack.DB)
		counter, purger = dbCounter, dbCounter
	}
	stack.RateStore = middleware.NewCacheRateStore(counter)

	stack.Cleaner = maintenance.NewCleaner(stack.Sessions, purger,
		maintenance.WithSessionInterval(cfg.Auth.ReapInterval()),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, stack.Sessions, stack.RateStore, stack.healthChecks()...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) sessionStore(ctx context.Context, cfg *app.Config, kind string) (iauth.SessionStore, error) {
	switch kind {
	case iauth.StoreDatabase:
		return iauth.NewGormSessionStore(s.DB)
	case iauth.StoreRedis:
		if s.Redis == nil {
			return nil, errors.New("redis session store requires a redis connection")
		}
		return iauth.NewRedisSessionStore(s.Redis)
	case iauth.StoreMemory:
		logger.WithModule("bootstrap").Warn("in-memory session store selected; sessions are lost on restart and not shared between instances")
		return iauth.NewMemorySessionStore(), nil
	case iauth.StoreMongo:
		client, err := connectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s.Mongo = client
		name := strings.TrimSpace(cfg.Mongo.Database)
		if name == "" {
			name = "itemhub"
		}
		return iauth.NewMongoSessionStore(ctx, client.Database(name))
	default:
		return nil, fmt.Errorf("unsupported session store %q", kind)
	}
}

func (s *runtimeStack) healthChecks() []api.RouterOption {
	var opts []api.RouterOption
	if s.Redis != nil {
		client := s.Redis
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	if s.Mongo != nil {
		client := s.Mongo
		opts = append(opts, api.WithHealthCheck("mongo", func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		}))
	}
	return opts
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			log.Warn("mongo shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.OpenConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(ctx, db, cfg.Auth.SeedOptions()); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func connectMongo(ctx context.Context, cfg app.MongoConfig) (*mongo.Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo.uri must be configured for the mongo session store")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
