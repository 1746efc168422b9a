package redis

import (
	"context"
	"time"

	"homeservices/internal/domain"
)

// LocationStoreInterface defines the provider location index.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, providerID string, point domain.Point) error
	FindNearby(ctx context.Context, origin domain.Point, radiusMeters float64) ([]ProviderLocation, error)
	GetLocation(ctx context.Context, providerID string) (domain.Point, error)
	GetLocations(ctx context.Context, providerIDs []string) (map[string]domain.Point, error)
	RemoveLocation(ctx context.Context, providerID string) error
}

// ProviderCacheInterface defines the provider snapshot cache.
type ProviderCacheInterface interface {
	GetProvidersBatch(ctx context.Context, providerIDs []string) (map[string]*CachedProvider, []string, error)
	SetProvidersBatch(ctx context.Context, providers []*CachedProvider) error
	InvalidateProvider(ctx context.Context, providerID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// IdempotencyStoreInterface defines storage for replayable responses.
type IdempotencyStoreInterface interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response *StoredResponse, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface    = (*LocationStore)(nil)
	_ ProviderCacheInterface    = (*CacheStore)(nil)
	_ LockStoreInterface        = (*LockStore)(nil)
	_ IdempotencyStoreInterface = (*IdempotencyStore)(nil)
)
