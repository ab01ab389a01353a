package app

import (
	"strings"
	"time"

	"github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/auth/providers"
	"github.com/charlesng35/itemhub/internal/database"
)

const (
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
	defaultReapInterval     = time.Hour
)

// TokenConfig converts AuthConfig into the parameters expected by the token codec.
func (c AuthConfig) TokenConfig() auth.TokenConfig {
	accessTTL := c.JWT.TTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}

	refreshTTL := c.Session.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenTTL
	}

	return auth.TokenConfig{
		Secret:          c.JWT.Secret,
		Issuer:          strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}
}

// SessionStoreKind returns the normalised session store backend, defaulting to the database.
func (c AuthConfig) SessionStoreKind() string {
	kind := strings.ToLower(strings.TrimSpace(c.Session.Store))
	if kind == "" {
		return auth.StoreDatabase
	}
	return kind
}

// ReapInterval returns how often expired sessions are swept.
func (c AuthConfig) ReapInterval() time.Duration {
	if c.Session.ReapInterval <= 0 {
		return defaultReapInterval
	}
	return c.Session.ReapInterval
}

// LocalProviderConfig converts AuthConfig into LocalProvider parameters.
func (c AuthConfig) LocalProviderConfig() providers.LocalConfig {
	duration := c.Local.LockoutDuration
	if duration <= 0 {
		duration = defaultLockoutDuration
	}

	threshold := c.Local.LockoutThreshold
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}

	return providers.LocalConfig{
		LockoutThreshold: threshold,
		LockoutDuration:  duration,
	}
}

// SeedOptions converts the first superuser settings into database seed options.
func (c AuthConfig) SeedOptions() database.SeedOptions {
	return database.SeedOptions{
		SuperuserEmail:    c.FirstSuperuser.Email,
		SuperuserPassword: c.FirstSuperuser.Password,
	}
}
