package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/itemhub/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	require.Equal(t, 20, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "items", cfg.Database.Name)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "mongodb://mongo.example.com:27017", cfg.Mongo.URI)
	require.Equal(t, "sessions", cfg.Mongo.Database)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "itemhub-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, "redis", cfg.Auth.Session.Store)
	require.Equal(t, 10*time.Minute, cfg.Auth.Session.ReapInterval)
	require.Equal(t, 7, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 20*time.Minute, cfg.Auth.Local.LockoutDuration)
	require.True(t, cfg.Auth.UsersOpenRegistration)
	require.Equal(t, "admin@example.com", cfg.Auth.FirstSuperuser.Email)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/itemhub.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, auth.StoreDatabase, cfg.Auth.Session.Store)
	require.False(t, cfg.Auth.UsersOpenRegistration)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("ITEMHUB_SERVER_PORT", "7070")
	t.Setenv("ITEMHUB_AUTH_SESSION_STORE", "memory")
	t.Setenv("ITEMHUB_AUTH_JWT_ACCESS_TOKEN_TTL", "5m")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Auth.Session.Store)
	require.Equal(t, 5*time.Minute, cfg.Auth.JWT.TTL)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "secret",
				Issuer: " itemhub ",
			},
			Session: SessionSettings{
				Store: " Redis ",
			},
			FirstSuperuser: FirstSuperuserSettings{
				Email:    "root@example.com",
				Password: "changethis",
			},
		},
	}

	tokenCfg := cfg.Auth.TokenConfig()
	require.Equal(t, "secret", tokenCfg.Secret)
	require.Equal(t, "itemhub", tokenCfg.Issuer)
	require.Equal(t, auth.DefaultAccessTokenTTL, tokenCfg.AccessTokenTTL)
	require.Equal(t, auth.DefaultRefreshTokenTTL, tokenCfg.RefreshTokenTTL)

	require.Equal(t, auth.StoreRedis, cfg.Auth.SessionStoreKind())
	require.Equal(t, time.Hour, cfg.Auth.ReapInterval())

	local := cfg.Auth.LocalProviderConfig()
	require.Equal(t, 5, local.LockoutThreshold)
	require.Equal(t, 15*time.Minute, local.LockoutDuration)

	seed := cfg.Auth.SeedOptions()
	require.Equal(t, "root@example.com", seed.SuperuserEmail)
	require.Equal(t, "changethis", seed.SuperuserPassword)

	require.Equal(t, auth.StoreDatabase, AuthConfig{}.SessionStoreKind())
}

func TestConfigAdapters(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "db",
			Port:   3306,
			Name:   "items",
		},
		Cache: CacheConfig{
			Redis: RedisCacheConfig{
				Address:  " localhost:6379 ",
				Username: " user ",
				DB:       3,
			},
		},
	}

	dbCfg := cfg.Database.OpenConfig()
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "db", dbCfg.Host)
	require.Equal(t, 3306, dbCfg.Port)

	redisCfg := cfg.Cache.RedisClientConfig()
	require.Equal(t, "localhost:6379", redisCfg.Address)
	require.Equal(t, "user", redisCfg.Username)
	require.Equal(t, 3, redisCfg.DB)
}
