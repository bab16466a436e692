package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "diagnoseme:rl"

// Decision is the verdict for one request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter shared through Redis so every replica
// sees the same budget.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	now    func() time.Time
}

func New(client redis.Cmdable, limit int, window time.Duration) (*Limiter, error) {
	if client == nil {
		return nil, fmt.Errorf("ratelimit: redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive")
	}
	if window < time.Second {
		return nil, fmt.Errorf("ratelimit: window must be at least 1s")
	}
	return &Limiter{client: client, limit: limit, window: window, now: time.Now}, nil
}

// NewClient builds the Redis client used by the limiter.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Allow counts one hit for key. On Redis errors the request is allowed and
// the error returned for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	windowSecs := int64(l.window / time.Second)
	slot := now.Unix() / windowSecs
	redisKey := fmt.Sprintf("%s:%s:%d", keyPrefix, sanitize(key), slot)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window+time.Second)
		return nil
	})
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("ratelimit: %w", err)
	}
	count := int(incr.Val())
	d := Decision{Limit: l.limit, Remaining: l.limit - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if count <= l.limit {
		d.Allowed = true
		return d, nil
	}
	windowEnd := time.Unix((slot+1)*windowSecs, 0)
	d.RetryAfter = windowEnd.Sub(now)
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	return d, nil
}

func sanitize(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "anonymous"
	}
	return strings.ReplaceAll(key, " ", "_")
}
