package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: miss")

// Service is a small JSON cache over Redis, used for derived lookups
// (e.g. waitlist positions) that can always be recomputed from Postgres.
type Service struct {
	client *redis.Client
	prefix string
}

// New creates a cache service. A nil client yields a disabled cache whose
// reads always miss and whose writes are no-ops.
func New(client *redis.Client, prefix string) *Service {
	return &Service{
		client: client,
		prefix: prefix,
	}
}

func (s *Service) key(k string) string {
	return s.prefix + ":" + k
}

// Get unmarshals the cached value for key into dest.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		return ErrCacheMiss
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode failed: %w", err)
	}
	return nil
}

// Set stores value under key with the given TTL.
func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes one or more keys.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	if s.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// AcquireLock takes a best-effort distributed lock via SETNX. It returns
// true when this caller owns the lock for roughly ttl.
func (s *Service) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if s.client == nil {
		// Single-instance fallback: pretend the lock is always free.
		return true, nil
	}

	ok, err := s.client.SetNX(ctx, s.key("lock:"+name), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire failed: %w", err)
	}
	return ok, nil
}

// ReleaseLock drops a lock taken with AcquireLock.
func (s *Service) ReleaseLock(ctx context.Context, name string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key("lock:"+name)).Err()
}
