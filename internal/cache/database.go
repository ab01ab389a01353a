package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/itemhub/internal/models"
)

// DatabaseCounter keeps counters in the rate_counters table. Finished windows are reused
// on the next hit and deleted by PurgeExpired.
type DatabaseCounter struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ Counter = (*DatabaseCounter)(nil)
	_ Purger  = (*DatabaseCounter)(nil)
)

// NewDatabaseCounter returns nil when db is nil.
func NewDatabaseCounter(db *gorm.DB, opts ...Option) *DatabaseCounter {
	if db == nil {
		return nil
	}
	o := applyOptions(opts)
	return &DatabaseCounter{db: db, now: o.now}
}

// Hit locks the counter row for the duration of the update so concurrent hits serialise.
func (c *DatabaseCounter) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	window = normaliseWindow(window)
	now := c.now().UTC()

	var counter models.RateCounter
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("counter_key = ?", key).
			Take(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.RateCounter{Key: key, Hits: 1, ExpiresAt: now.Add(window)}
			return tx.Create(&counter).Error
		}
		if err != nil {
			return err
		}

		if counter.WindowClosed(now) {
			counter.Hits = 0
			counter.ExpiresAt = now.Add(window)
		}
		counter.Hits++
		return tx.Model(&models.RateCounter{}).
			Where("counter_key = ?", key).
			Updates(map[string]any{"hits": counter.Hits, "expires_at": counter.ExpiresAt}).Error
	})
	if err != nil {
		return Window{}, fmt.Errorf("cache: hit %q: %w", key, err)
	}
	return Window{Count: counter.Hits, ResetIn: counter.ExpiresAt.Sub(now)}, nil
}

// PurgeExpired deletes counters whose window ended at or before now.
func (c *DatabaseCounter) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := c.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.RateCounter{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache: purge expired counters: %w", result.Error)
	}
	return result.RowsAffected, nil
}
