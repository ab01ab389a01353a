package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/charlesng35/itemhub/internal/models"
)

// MemorySessionStore keeps refresh sessions in process. It suits single instance
// deployments and tests; sessions do not survive restarts.
type MemorySessionStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, models.RefreshSession]
	slots map[string]string
	now   func() time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore constructs an in-process SessionStore.
func NewMemorySessionStore(opts ...StoreOption) *MemorySessionStore {
	o := applyStoreOptions(opts)
	return &MemorySessionStore{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, models.RefreshSession](),
		),
		slots: make(map[string]string),
		now:   o.now,
	}
}

func memorySlot(userID, fingerprint string) string {
	return userID + "\x00" + fingerprint
}

func (s *MemorySessionStore) FindActive(_ context.Context, userID, fingerprint string) (*models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.slots[memorySlot(userID, fingerprint)]
	if !ok {
		return nil, nil
	}
	return s.liveLocked(token), nil
}

func (s *MemorySessionStore) FindByToken(_ context.Context, refreshToken string) (*models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveLocked(refreshToken), nil
}

func (s *MemorySessionStore) Create(_ context.Context, userID, refreshToken, fingerprint string, ttl time.Duration) (*models.RefreshSession, error) {
	session, err := newSessionRecord(userID, refreshToken, fingerprint, s.now(), ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Has(refreshToken) {
		return nil, fmt.Errorf("session store: %w", ErrDuplicateToken)
	}
	s.cache.Set(refreshToken, *session, ttl)
	s.slots[memorySlot(userID, fingerprint)] = refreshToken

	out := *session
	return &out, nil
}

func (s *MemorySessionStore) DeleteByToken(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.takeLocked(refreshToken)
	return nil
}

func (s *MemorySessionStore) TakeByToken(_ context.Context, refreshToken string) (*models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.takeLocked(refreshToken), nil
}

func (s *MemorySessionStore) ListByUser(_ context.Context, userID string) ([]models.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var sessions []models.RefreshSession
	s.cache.Range(func(item *ttlcache.Item[string, models.RefreshSession]) bool {
		session := item.Value()
		if session.UserID == userID && !session.IsExpired(now) {
			sessions = append(sessions, session)
		}
		return true
	})
	sortNewestFirst(sessions)
	return sessions, nil
}

func (s *MemorySessionStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhereLocked(func(session models.RefreshSession) bool {
		return session.UserID == userID
	}), nil
}

func (s *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.deleteWhereLocked(func(session models.RefreshSession) bool {
		return session.IsExpired(now)
	})
	s.cache.DeleteExpired()
	s.pruneSlotsLocked()
	return removed, nil
}

// Len reports the number of stored sessions, including expired ones not yet reaped.
func (s *MemorySessionStore) Len() int {
	return s.cache.Len()
}

func (s *MemorySessionStore) liveLocked(token string) *models.RefreshSession {
	item := s.cache.Get(token)
	if item == nil {
		return nil
	}
	session := item.Value()
	if session.IsExpired(s.now()) {
		return nil
	}
	return &session
}

func (s *MemorySessionStore) takeLocked(token string) *models.RefreshSession {
	item, ok := s.cache.GetAndDelete(token)
	if !ok || item == nil {
		return nil
	}
	session := item.Value()
	slot := memorySlot(session.UserID, session.Fingerprint)
	if s.slots[slot] == token {
		delete(s.slots, slot)
	}
	return &session
}

func (s *MemorySessionStore) deleteWhereLocked(match func(models.RefreshSession) bool) int64 {
	var tokens []string
	for token, item := range s.cache.Items() {
		if match(item.Value()) {
			tokens = append(tokens, token)
		}
	}
	for _, token := range tokens {
		s.takeLocked(token)
	}
	return int64(len(tokens))
}

func (s *MemorySessionStore) pruneSlotsLocked() {
	for slot, token := range s.slots {
		if !s.cache.Has(token) {
			delete(s.slots, slot)
		}
	}
}
