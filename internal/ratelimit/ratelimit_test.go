package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l, err := New(client, limit, window)
	require.NoError(t, err)
	return l, mr
}

func TestLimiterBlocksAfterLimit(t *testing.T) {
	l, mr := newTestLimiter(t, 2, time.Minute)
	now := time.Unix(1_700_000_010, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	other, err := l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
	assert.Equal(t, 1, other.Remaining)

	key := "diagnoseme:rl:10.0.0.1:28333333"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 61*time.Second, mr.TTL(key))
}

func TestLimiterNewWindowResets(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := l.Allow(ctx, "ip")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "ip")
	assert.False(t, d.Allowed)

	now = now.Add(time.Minute)
	d, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiterFailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()
	d, err := l.Allow(context.Background(), "ip")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestNewValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err := New(nil, 1, time.Minute)
	assert.Error(t, err)
	_, err = New(client, 0, time.Minute)
	assert.Error(t, err)
	_, err = New(client, 1, time.Millisecond)
	assert.Error(t, err)
}
