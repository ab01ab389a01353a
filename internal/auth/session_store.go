package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charlesng35/itemhub/internal/models"
)

// SessionStore persists refresh sessions. Reads treat expired sessions as absent.
type SessionStore interface {
	// FindActive returns a live session for the user and fingerprint, or nil when none exists.
	FindActive(ctx context.Context, userID, fingerprint string) (*models.RefreshSession, error)
	// FindByToken returns the live session holding refreshToken, or nil.
	FindByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error)
	// Create stores a new session expiring after ttl. A token collision yields ErrDuplicateToken.
	Create(ctx context.Context, userID, refreshToken, fingerprint string, ttl time.Duration) (*models.RefreshSession, error)
	// DeleteByToken removes the session holding refreshToken. Missing sessions are not an error.
	DeleteByToken(ctx context.Context, refreshToken string) error
	// TakeByToken atomically removes and returns the session holding refreshToken.
	// Among concurrent callers with the same token at most one receives the session.
	// An expired session is still removed and returned; callers check ExpiresAt.
	TakeByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error)
	// ListByUser returns the live sessions of a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.RefreshSession, error)
	// DeleteByUser removes every session of a user and reports how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes sessions that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Session store backends selectable through configuration.
const (
	StoreDatabase = "database"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
)

// StoreOption customises a SessionStore implementation.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithStoreClock overrides the clock used for expiry bookkeeping.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newSessionRecord(userID, refreshToken, fingerprint string, now time.Time, ttl time.Duration) (*models.RefreshSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("session store: user id is required")
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("session store: refresh token is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session store: ttl must be positive")
	}

	now = now.UTC()
	session := &models.RefreshSession{
		UserID:       userID,
		RefreshToken: refreshToken,
		Fingerprint:  fingerprint,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := session.BeforeCreate(nil); err != nil {
		return nil, err
	}
	return session, nil
}

func sortNewestFirst(sessions []models.RefreshSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
