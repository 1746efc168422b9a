package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

// LockStore handles short-lived distributed locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the named lock.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, lockPrefix+name, "1", ttl).Result()
}

// Release releases the named lock.
func (s *LockStore) Release(ctx context.Context, name string) error {
	return s.client.Del(ctx, lockPrefix+name).Err()
}
