package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipsentry/internal/config"
	"ipsentry/internal/retry"
	"ipsentry/internal/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the JSON record under a single key
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects to redis
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.Addr == "" || cfg.Key == "" {
		return nil, retry.Permanent(fmt.Errorf("redis addr and key are required"))
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return newRedisStore(rc, cfg.Key, logger), nil
}

func newRedisStore(rc *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: rc,
		key:    key,
		logger: logger,
	}
}

// Load reads the record
func (s *RedisStore) Load(ctx context.Context) (types.MonitoringState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.NewMonitoringState(), nil
	}
	if err != nil {
		return types.NewMonitoringState(), fmt.Errorf("failed to get state: %w", err)
	}
	if len(data) == 0 {
		return types.NewMonitoringState(), fmt.Errorf("state key %s is empty", s.key)
	}
	return decodeRecord(data)
}

// Save writes the record with one SET
func (s *RedisStore) Save(ctx context.Context, state types.MonitoringState) error {
	data, err := encodeRecord(state, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
