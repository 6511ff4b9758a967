package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

// Service is a Redis-backed JSON cache shared between instances.
// A disabled Service misses on every read and drops every write.
type Service struct {
	client *redis.Client
	prefix string
}

// NewService connects to Redis when enabled and checks the connection.
func NewService(ctx context.Context, cfg config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		return &Service{prefix: cfg.Prefix}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

// Enabled reports whether a Redis connection is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON decodes the value stored under key into v. It reports false on a
// miss or when the cache is disabled.
func (s *Service) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	data, err := s.client.Get(ctx, s.generateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("redis")
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	common.LogCacheHit("redis")
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Service) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := s.client.Set(ctx, s.generateKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping checks the connection; a disabled Service is always healthy.
func (s *Service) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

func (s *Service) generateKey(key string) string {
	return s.prefix + key
}
