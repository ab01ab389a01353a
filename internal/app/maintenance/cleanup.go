package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/itemhub/internal/cache"
	"github.com/charlesng35/itemhub/pkg/logger"
)

const (
	defaultSessionInterval = time.Hour
	defaultCacheSpec       = "@hourly"
)

// SessionReaper deletes refresh sessions that are past their expiry.
type SessionReaper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: reaping expired refresh sessions and
// purging finished rate limit windows from counters that do not expire keys themselves.
type Cleaner struct {
	sessions SessionReaper
	cache    cache.Purger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	enabled  bool

	sessionInterval time.Duration
	cacheSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for counter purge comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSessionInterval overrides how often expired sessions are reaped.
func WithSessionInterval(interval time.Duration) Option {
	return func(cleaner *Cleaner) {
		if interval > 0 {
			cleaner.sessionInterval = interval
		}
	}
}

// WithCacheSchedule overrides the cron specification for counter purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(sessions SessionReaper, purger cache.Purger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		cache:           purger,
		now:             time.Now,
		sessionInterval: defaultSessionInterval,
		cacheSchedule:   defaultCacheSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.cache != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		spec := fmt.Sprintf("@every %s", c.sessionInterval)
		if _, err := c.cron.AddFunc(spec, func() {
			c.reapSessions(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule session reaper: %w", err)
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			c.purgeCache(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule cache purge: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.cache != nil {
		if _, err := c.cache.PurgeExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge cache: %w", err))
		}
	}

	return errs
}

func (c *Cleaner) reapSessions(ctx context.Context) {
	removed, err := c.sessions.CleanupExpired(ctx)
	if err != nil {
		c.log.Warn("session cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		c.log.Info("expired sessions removed", zap.Int64("count", removed))
	}
}

func (c *Cleaner) purgeCache(ctx context.Context) {
	removed, err := c.cache.PurgeExpired(ctx, c.now())
	if err != nil {
		c.log.Warn("rate counter purge failed", zap.Error(err))
		return
	}
	if removed > 0 {
		c.log.Debug("expired rate counters removed", zap.Int64("count", removed))
	}
}
