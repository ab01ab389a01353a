package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charlesng35/itemhub/internal/models"
)

const redisSessionPrefix = "itemhub:refresh:"

// createSessionScript writes the token record, the (user, fingerprint) slot and the user index.
// It refuses to overwrite an existing token record.
var createSessionScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SET", KEYS[2], ARGV[3], "PX", ARGV[2])
redis.call("SADD", KEYS[3], ARGV[3])
if redis.call("PTTL", KEYS[3]) < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[3], ARGV[2])
end
return 1
`)

// releaseSlotScript clears the slot only while it still points at the released token.
var releaseSlotScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  redis.call("DEL", KEYS[1])
end
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`)

// RedisSessionStore keeps refresh sessions in Redis. Key expiry follows the session expiry.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore wraps a go-redis client.
func NewRedisSessionStore(client redis.UniversalClient, opts ...StoreOption) (*RedisSessionStore, error) {
	if client == nil {
		return nil, errors.New("session store: redis client is required")
	}
	o := applyStoreOptions(opts)
	return &RedisSessionStore{client: client, prefix: redisSessionPrefix, now: o.now}, nil
}

func (s *RedisSessionStore) tokenKey(token string) string {
	return s.prefix + "token:" + token
}

func (s *RedisSessionStore) slotKey(userID, fingerprint string) string {
	return s.prefix + "slot:" + userID + ":" + fingerprint
}

func (s *RedisSessionStore) userKey(userID string) string {
	return s.prefix + "user:" + userID
}

func (s *RedisSessionStore) FindActive(ctx context.Context, userID, fingerprint string) (*models.RefreshSession, error) {
	token, err := s.client.Get(ctx, s.slotKey(userID, fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: find active session: %w", err)
	}

	session, err := s.FindByToken(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}
	if session.UserID != userID || session.Fingerprint != fingerprint {
		return nil, nil
	}
	return session, nil
}

func (s *RedisSessionStore) FindByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(refreshToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: find session by token: %w", err)
	}
	return s.decodeLive(raw, refreshToken)
}

func (s *RedisSessionStore) Create(ctx context.Context, userID, refreshToken, fingerprint string, ttl time.Duration) (*models.RefreshSession, error) {
	session, err := newSessionRecord(userID, refreshToken, fingerprint, s.now(), ttl)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(redisSession{RefreshSession: *session, Token: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("session store: encode session: %w", err)
	}

	created, err := createSessionScript.Run(ctx, s.client,
		[]string{s.tokenKey(refreshToken), s.slotKey(userID, fingerprint), s.userKey(userID)},
		payload, ttl.Milliseconds(), refreshToken,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("session store: create session: %w", err)
	}
	if created == 0 {
		return nil, fmt.Errorf("session store: %w", ErrDuplicateToken)
	}
	return session, nil
}

func (s *RedisSessionStore) DeleteByToken(ctx context.Context, refreshToken string) error {
	if _, err := s.take(ctx, refreshToken); err != nil {
		return fmt.Errorf("session store: delete session: %w", err)
	}
	return nil
}

// TakeByToken relies on GETDEL: only one client can read a key it also deletes.
func (s *RedisSessionStore) TakeByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	session, err := s.take(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("session store: take session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) take(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	raw, err := s.client.GetDel(ctx, s.tokenKey(refreshToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session, err := decodeRedisSession(raw, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := releaseSlotScript.Run(ctx, s.client,
		[]string{s.slotKey(session.UserID, session.Fingerprint), s.userKey(session.UserID)},
		refreshToken,
	).Err(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	sessions, stale, err := s.userSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session store: list sessions: %w", err)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, s.userKey(userID), stale...).Err()
	}

	now := s.now()
	live := sessions[:0]
	for _, session := range sessions {
		if !session.IsExpired(now) {
			live = append(live, session)
		}
	}
	sortNewestFirst(live)
	return live, nil
}

func (s *RedisSessionStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	sessions, _, err := s.userSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session store: delete user sessions: %w", err)
	}

	var removed int64
	for _, session := range sessions {
		taken, err := s.take(ctx, session.RefreshToken)
		if err != nil {
			return removed, fmt.Errorf("session store: delete user sessions: %w", err)
		}
		if taken != nil {
			removed++
		}
	}
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return removed, fmt.Errorf("session store: delete user index: %w", err)
	}
	return removed, nil
}

// DeleteExpired drops sessions the store clock considers expired and prunes
// index entries whose token keys Redis already evicted.
func (s *RedisSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"user:*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("session store: scan user index: %w", err)
		}

		for _, key := range keys {
			userID := strings.TrimPrefix(key, s.prefix+"user:")
			sessions, stale, err := s.userSessions(ctx, userID)
			if err != nil {
				return removed, fmt.Errorf("session store: delete expired sessions: %w", err)
			}
			if len(stale) > 0 {
				if err := s.client.SRem(ctx, key, stale...).Err(); err != nil {
					return removed, fmt.Errorf("session store: prune user index: %w", err)
				}
				removed += int64(len(stale))
			}
			for _, session := range sessions {
				if !session.IsExpired(now) {
					continue
				}
				taken, err := s.take(ctx, session.RefreshToken)
				if err != nil {
					return removed, fmt.Errorf("session store: delete expired sessions: %w", err)
				}
				if taken != nil {
					removed++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// userSessions loads the sessions referenced by the user index. Tokens whose
// record is gone are returned as stale.
func (s *RedisSessionStore) userSessions(ctx context.Context, userID string) ([]models.RefreshSession, []interface{}, error) {
	tokens, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = s.tokenKey(token)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	sessions := make([]models.RefreshSession, 0, len(values))
	var stale []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			stale = append(stale, tokens[i])
			continue
		}
		session, err := decodeRedisSession([]byte(raw), tokens[i])
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, stale, nil
}

func (s *RedisSessionStore) decodeLive(raw []byte, token string) (*models.RefreshSession, error) {
	session, err := decodeRedisSession(raw, token)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, nil
	}
	return session, nil
}

// redisSession carries the token explicitly; the model hides it from JSON.
type redisSession struct {
	models.RefreshSession
	Token string `json:"refresh_token"`
}

func decodeRedisSession(raw []byte, token string) (*models.RefreshSession, error) {
	var record redisSession
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session := record.RefreshSession
	session.RefreshToken = token
	return &session, nil
}
