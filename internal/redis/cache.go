package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"homeservices/internal/domain"
)

// ProviderCacheTTL bounds how stale a cached provider snapshot can get.
// Writes to availability, suspension and rating invalidate the entry directly, and
// a snapshot loaded before such a write can no longer be cached for one TTL.
const ProviderCacheTTL = 30 * time.Second

const (
	providerCachePrefix = "cache:provider:"
	providerFencePrefix = "cache:provider-fence:"
)

// refillScript writes each snapshot unless its provider was invalidated within the fence window.
// KEYS alternate cache key and fence key; ARGV holds the payloads followed by the TTL in ms.
var refillScript = redis.NewScript(`
local ttl = ARGV[#ARGV]
local written = 0
for i = 1, #KEYS, 2 do
	if redis.call('EXISTS', KEYS[i + 1]) == 0 then
		redis.call('SET', KEYS[i], ARGV[(i + 1) / 2], 'PX', ttl)
		written = written + 1
	end
end
return written
`)

// CachedProvider is the provider snapshot kept in cache for search hydration.
type CachedProvider struct {
	ID           string   `json:"id"`
	BusinessName string   `json:"business_name"`
	Phone        string   `json:"phone"`
	Categories   []string `json:"categories"`
	Available    bool     `json:"available"`
	Verified     bool     `json:"verified"`
	Suspended    bool     `json:"suspended"`
	RatingSum    float64  `json:"rating_sum"`
	RatingCount  int      `json:"rating_count"`
	BasePrice    float64  `json:"base_price"`
	PerKmRate    float64  `json:"per_km_rate"`
}

// NewCachedProvider builds a cache snapshot of p.
func NewCachedProvider(p *domain.Provider) *CachedProvider {
	categories := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, string(c))
	}
	return &CachedProvider{
		ID:           p.ID,
		BusinessName: p.BusinessName,
		Phone:        p.Phone,
		Categories:   categories,
		Available:    p.Available,
		Verified:     p.Verified,
		Suspended:    p.Suspended,
		RatingSum:    p.Rating.Sum,
		RatingCount:  p.Rating.Count,
		BasePrice:    p.Pricing.BasePrice,
		PerKmRate:    p.Pricing.PerKmRate,
	}
}

// ToDomain converts the snapshot back to a provider without a location.
func (c *CachedProvider) ToDomain() *domain.Provider {
	categories := make([]domain.ServiceCategory, 0, len(c.Categories))
	for _, cat := range c.Categories {
		categories = append(categories, domain.ServiceCategory(cat))
	}
	return &domain.Provider{
		ID:           c.ID,
		BusinessName: c.BusinessName,
		Phone:        c.Phone,
		Categories:   categories,
		Available:    c.Available,
		Verified:     c.Verified,
		Suspended:    c.Suspended,
		Rating:       domain.RatingStat{Sum: c.RatingSum, Count: c.RatingCount},
		Pricing:      domain.Pricing{BasePrice: c.BasePrice, PerKmRate: c.PerKmRate},
	}
}

// CacheStore handles provider caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetProvidersBatch retrieves multiple providers from cache using a pipeline.
// Returns a map of providerID -> CachedProvider and the IDs that missed.
func (s *CacheStore) GetProvidersBatch(ctx context.Context, providerIDs []string) (map[string]*CachedProvider, []string, error) {
	result := make(map[string]*CachedProvider, len(providerIDs))
	if len(providerIDs) == 0 {
		return result, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(providerIDs))
	for i, id := range providerIDs {
		cmds[i] = pipe.Get(ctx, providerCachePrefix+id)
	}

	// A pipeline reports redis.Nil when any key is missing; per-command results are checked below.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return result, providerIDs, err
	}

	var missing []string
	for i, cmd := range cmds {
		id := providerIDs[i]
		data, err := cmd.Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}

		var provider CachedProvider
		if err := json.Unmarshal(data, &provider); err != nil {
			missing = append(missing, id)
			continue
		}
		result[id] = &provider
	}

	return result, missing, nil
}

// SetProvidersBatch stores multiple providers in cache with one script call.
// Providers invalidated within the last ProviderCacheTTL are skipped, since the snapshot
// may have been read before the write that invalidated them.
func (s *CacheStore) SetProvidersBatch(ctx context.Context, providers []*CachedProvider) error {
	keys := make([]string, 0, 2*len(providers))
	args := make([]any, 0, len(providers)+1)
	for _, provider := range providers {
		data, err := json.Marshal(provider)
		if err != nil {
			continue
		}
		keys = append(keys, providerCachePrefix+provider.ID, providerFencePrefix+provider.ID)
		args = append(args, data)
	}
	if len(keys) == 0 {
		return nil
	}
	args = append(args, ProviderCacheTTL.Milliseconds())

	return refillScript.Run(ctx, s.client, keys, args...).Err()
}

// InvalidateProvider removes a provider from cache and fences it against stale refills.
func (s *CacheStore) InvalidateProvider(ctx context.Context, providerID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, providerFencePrefix+providerID, 1, ProviderCacheTTL)
		pipe.Del(ctx, providerCachePrefix+providerID)
		return nil
	})
	return err
}
