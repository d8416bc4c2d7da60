package store

import (
	"context"
	"testing"

	"ipsentry/internal/config"
	"ipsentry/internal/retry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testRedisKey = "ipsentry:state"

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newRedisStore(rc, testRedisKey, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreSaveLoad(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleState()))

	raw, err := mr.Get(testRedisKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"address":"1.2.3.4"`)
	assert.Contains(t, raw, `"escalation_step":2`)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameState(t, sampleState(), got)
}

func TestRedisStoreMissingKey(t *testing.T) {
	s, _ := newTestRedisStore(t)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.LastAddress.IsZero())
	assert.Equal(t, 1, got.EscalationStep)
}

func TestRedisStoreUnreadable(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", "is empty"},
		{"malformed", "{oops", "malformed state record"},
		{"bad address", `{"address":"not-an-ip"}`, "invalid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mr := newTestRedisStore(t)
			require.NoError(t, mr.Set(testRedisKey, tt.value))

			got, err := s.Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, got.LastAddress.IsZero())
			assert.Equal(t, 1, got.EscalationStep)
		})
	}
}

func TestRedisStoreConnectionLost(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	s := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), testRedisKey, zaptest.NewLogger(t))
	defer s.Close()
	mr.Close()

	_, err = s.Load(context.Background())
	assert.ErrorContains(t, err, "failed to get state")
	assert.ErrorContains(t, s.Save(context.Background(), sampleState()), "failed to set state")
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, &config.RedisConfig{Addr: mr.Addr(), Key: testRedisKey}, logger)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save(ctx, sampleState()))
	assert.True(t, mr.Exists(testRedisKey))

	_, err = NewRedisStore(ctx, &config.RedisConfig{Addr: mr.Addr()}, logger)
	assert.True(t, retry.IsPermanent(err))
}
