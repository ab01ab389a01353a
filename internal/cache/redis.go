package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the shared Redis client.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "itemhub:rate:"
)

// hitScript increments KEYS[1] and opens its window on the first hit. A key that lost its
// expiry, for example after a manual INCR, gets a fresh window instead of living forever.
var hitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if hits == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {hits, ttl}
`)

// NewRedisClient builds a go-redis client and pings it so misconfiguration surfaces during start-up.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Address)
		if err != nil {
			host = cfg.Address
		}
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

// RedisCounter keeps counters as Redis keys that expire with their window.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

var _ Counter = (*RedisCounter)(nil)

// NewRedisCounter returns nil when client is nil.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	if client == nil {
		return nil
	}
	return &RedisCounter{client: client, prefix: redisKeyPrefix}
}

func (c *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	window = normaliseWindow(window)

	reply, err := hitScript.Run(ctx, c.client, []string{c.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("cache: hit %q: %w", key, err)
	}
	if len(reply) != 2 {
		return Window{}, fmt.Errorf("cache: hit %q: unexpected reply %v", key, reply)
	}

	resetIn := time.Duration(reply[1]) * time.Millisecond
	if resetIn <= 0 {
		resetIn = window
	}
	return Window{Count: reply[0], ResetIn: resetIn}, nil
}
