package lock

import (
	"context"
	"fmt"
	"net"
	"time"

	"retail-sim/internal/config"
	"retail-sim/internal/core"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token, so an expired lock
// taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker serializes commits across server instances with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, prefix string, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, prefix: prefix, log: log}
}

var _ core.SessionLocker = (*RedisLocker)(nil)

func (l *RedisLocker) TryLock(ctx context.Context, sessionID string) (func(), error) {
	key := l.prefix + sessionID
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrCommitInProgress)
	}
	return func() {
		// release even if the request context was cancelled mid-commit
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to release commit lock")
		}
	}, nil
}

// NewRedisClient builds and pings a client from configuration.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func buildRedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// New picks the Redis locker when Redis is configured, else the in-process one.
func New(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (core.SessionLocker, func(), error) {
	if !cfg.Enabled() {
		return NewLocalLocker(), func() {}, nil
	}
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisLocker(client, cfg.LockTTL, cfg.KeyPrefix, log), func() { client.Close() }, nil
}
