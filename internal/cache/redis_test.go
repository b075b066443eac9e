package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore connects to REDIS_TEST_ADDR (default localhost:6379) and
// skips the test when no server answers.
func setupRedisStore(t *testing.T) *RedisStore {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		t.Skipf("Redis not available: %v", err)
	}
	s := NewRedisStore(rdb)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()
	key := "test:cache:" + t.Name()
	defer s.Delete(ctx, key)

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, key, []byte("value"), time.Minute))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))

	ttl, err := s.Client().TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_Expiry(t *testing.T) {
	s := setupRedisStore(t)
	ctx := context.Background()
	key := "test:cache:" + t.Name()

	require.NoError(t, s.Set(ctx, key, []byte("v"), 100*time.Millisecond))
	time.Sleep(300 * time.Millisecond)

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}
