package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"homeservices/internal/domain"
	"homeservices/internal/observability"
	"homeservices/internal/redis"
	"homeservices/internal/repository"
)

// SortKey orders search candidates.
type SortKey string

const (
	SortByDistance     SortKey = "distance"
	SortByRating       SortKey = "rating"
	SortByPriceLow     SortKey = "price_low"
	SortByPriceHigh    SortKey = "price_high"
	SortByAvailability SortKey = "availability"
)

// Valid reports whether k is a known sort key. The empty key means distance.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortByDistance, SortByRating, SortByPriceLow, SortByPriceHigh, SortByAvailability:
		return true
	}
	return false
}

// MatchingOptions bounds searches.
type MatchingOptions struct {
	DefaultRadiusMeters float64
	MaxRadiusMeters     float64
	MaxResults          int
}

// DefaultMatchingOptions returns the options used when none are configured.
func DefaultMatchingOptions() MatchingOptions {
	return MatchingOptions{
		DefaultRadiusMeters: 10000,
		MaxRadiusMeters:     100000,
		MaxResults:          20,
	}
}

// SearchFilters are the optional eligibility filters of a search.
type SearchFilters struct {
	MinRating    float64
	MinPrice     *float64
	MaxPrice     *float64
	AvailableNow bool
	VerifiedOnly bool
}

// SearchQuery contains the parameters of a provider search.
type SearchQuery struct {
	Origin       domain.Point
	Category     domain.ServiceCategory
	RadiusMeters float64 // Optional: 0 uses the default radius
	Filters      SearchFilters
	Sort         SortKey
	Limit        int // Optional: 0 uses the maximum
}

// Candidate is a provider returned by a search.
type Candidate struct {
	Provider       *domain.Provider
	DistanceMeters float64
	Price          float64
}

// EligibilityRequest identifies a provider chosen for a booking.
type EligibilityRequest struct {
	ProviderID  string
	Category    domain.ServiceCategory
	Destination domain.Point
}

// MatchingServiceInterface defines the matching service contract.
type MatchingServiceInterface interface {
	Search(ctx context.Context, q SearchQuery) ([]Candidate, error)
	CheckEligibility(ctx context.Context, req EligibilityRequest) (*Candidate, error)
}

// Ensure MatchingService implements MatchingServiceInterface.
var _ MatchingServiceInterface = (*MatchingService)(nil)

// MatchingService finds providers near a point.
type MatchingService struct {
	locationStore redis.LocationStoreInterface
	cacheStore    redis.ProviderCacheInterface
	providerRepo  repository.ProviderRepository
	opts          MatchingOptions
	logger        *slog.Logger
}

// NewMatchingService creates a new MatchingService. cacheStore may be nil.
func NewMatchingService(
	locationStore redis.LocationStoreInterface,
	cacheStore redis.ProviderCacheInterface,
	providerRepo repository.ProviderRepository,
	opts MatchingOptions,
	logger *slog.Logger,
) *MatchingService {
	return &MatchingService{
		locationStore: locationStore,
		cacheStore:    cacheStore,
		providerRepo:  providerRepo,
		opts:          opts,
		logger:        logger.With("component", "matching"),
	}
}

// Search returns providers offering q.Category within the radius of q.Origin,
// filtered and ordered as requested. It never mutates state.
func (s *MatchingService) Search(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	start := time.Now()
	defer func() { observability.SearchLatency.Observe(time.Since(start).Seconds()) }()

	q, err := s.normalize(q)
	if err != nil {
		observability.SearchesTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, err
	}

	nearby, err := s.locationStore.FindNearby(ctx, q.Origin, q.RadiusMeters)
	if err != nil {
		observability.SearchesTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, fmt.Errorf("find nearby providers: %w", err)
	}

	// The index query is widened to cover its own earth radius, so hits are re-bounded here.
	distances := make(map[string]float64, len(nearby))
	points := make(map[string]domain.Point, len(nearby))
	ids := make([]string, 0, len(nearby))
	for _, loc := range nearby {
		d := domain.DistanceMeters(q.Origin, loc.Point)
		if d > q.RadiusMeters {
			continue
		}
		distances[loc.ProviderID] = d
		points[loc.ProviderID] = loc.Point
		ids = append(ids, loc.ProviderID)
	}

	providers, err := s.loadProviders(ctx, ids)
	if err != nil {
		observability.SearchesTotal.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		provider, ok := providers[id]
		if !ok {
			continue
		}
		provider.Location = points[id]
		candidate := Candidate{
			Provider:       provider,
			DistanceMeters: distances[id],
			Price:          provider.Pricing.Quote(distances[id]),
		}
		if !matchesFilters(candidate, q.Category, q.Filters) {
			continue
		}
		candidates = append(candidates, candidate)
	}

	sortCandidates(candidates, q.Sort)

	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}

	observability.SearchesTotal.WithLabelValues(observability.OutcomeOK).Inc()
	observability.SearchCandidates.Observe(float64(len(candidates)))
	return candidates, nil
}

// CheckEligibility verifies the provider can take a booking for category at destination right now.
func (s *MatchingService) CheckEligibility(ctx context.Context, req EligibilityRequest) (*Candidate, error) {
	provider, err := s.providerRepo.GetByID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	if !provider.Bookable() {
		if provider.Suspended {
			return nil, fmt.Errorf("%w: provider is suspended", ErrProviderNotEligible)
		}
		return nil, fmt.Errorf("%w: provider is not available", ErrProviderNotEligible)
	}
	if !provider.Offers(req.Category) {
		return nil, fmt.Errorf("%w: provider does not offer %s", ErrProviderNotEligible, req.Category)
	}

	location, err := s.locationStore.GetLocation(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, redis.ErrLocationNotFound) {
			return nil, fmt.Errorf("%w: provider location unknown", ErrProviderNotEligible)
		}
		return nil, err
	}
	provider.Location = location

	distance := domain.DistanceMeters(req.Destination, location)
	if distance > s.opts.DefaultRadiusMeters {
		return nil, fmt.Errorf("%w: provider is %.0fm away", ErrProviderNotEligible, distance)
	}

	return &Candidate{
		Provider:       provider,
		DistanceMeters: distance,
		Price:          provider.Pricing.Quote(distance),
	}, nil
}

func (s *MatchingService) normalize(q SearchQuery) (SearchQuery, error) {
	if !q.Origin.Valid() {
		return q, fmt.Errorf("%w: origin coordinates out of range", ErrInvalidQuery)
	}
	if !q.Category.Valid() {
		return q, fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, q.Category)
	}
	if math.IsNaN(q.RadiusMeters) || math.IsInf(q.RadiusMeters, 0) || q.RadiusMeters < 0 {
		return q, fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}
	if q.RadiusMeters == 0 {
		q.RadiusMeters = s.opts.DefaultRadiusMeters
	}
	if q.RadiusMeters > s.opts.MaxRadiusMeters {
		return q, fmt.Errorf("%w: radius exceeds %.0fm", ErrInvalidQuery, s.opts.MaxRadiusMeters)
	}

	f := q.Filters
	if math.IsNaN(f.MinRating) || f.MinRating < 0 || f.MinRating > domain.MaxRatingScore {
		return q, fmt.Errorf("%w: min rating must be between 0 and %.0f", ErrInvalidQuery, domain.MaxRatingScore)
	}
	if !validPriceBound(f.MinPrice) || !validPriceBound(f.MaxPrice) {
		return q, fmt.Errorf("%w: price bounds must be non-negative", ErrInvalidQuery)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return q, fmt.Errorf("%w: min price above max price", ErrInvalidQuery)
	}

	if !q.Sort.Valid() {
		return q, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}
	if q.Sort == "" {
		q.Sort = SortByDistance
	}

	if q.Limit < 0 {
		return q, fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	if q.Limit == 0 || q.Limit > s.opts.MaxResults {
		q.Limit = s.opts.MaxResults
	}
	return q, nil
}

func validPriceBound(p *float64) bool {
	return p == nil || (!math.IsNaN(*p) && !math.IsInf(*p, 0) && *p >= 0)
}

// loadProviders hydrates ids from cache first, then loads the misses from the database in one query.
func (s *MatchingService) loadProviders(ctx context.Context, ids []string) (map[string]*domain.Provider, error) {
	result := make(map[string]*domain.Provider, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	missing := ids
	if s.cacheStore != nil {
		cached, miss, err := s.cacheStore.GetProvidersBatch(ctx, ids)
		if err != nil {
			s.logger.Debug("provider cache unavailable", "error", err)
			miss = ids
		}
		for id, c := range cached {
			result[id] = c.ToDomain()
		}
		missing = miss
	}

	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := s.providerRepo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}

	toCache := make([]*redis.CachedProvider, 0, len(loaded))
	for _, p := range loaded {
		result[p.ID] = p
		toCache = append(toCache, redis.NewCachedProvider(p))
	}
	if s.cacheStore != nil {
		if err := s.cacheStore.SetProvidersBatch(ctx, toCache); err != nil {
			s.logger.Debug("provider cache refill failed", "error", err)
		}
	}

	return result, nil
}

func matchesFilters(c Candidate, category domain.ServiceCategory, f SearchFilters) bool {
	p := c.Provider
	switch {
	case !p.Offers(category):
		return false
	case p.Suspended:
		return false
	case p.Rating.Average() < f.MinRating:
		return false
	case f.MinPrice != nil && c.Price < *f.MinPrice:
		return false
	case f.MaxPrice != nil && c.Price > *f.MaxPrice:
		return false
	case f.AvailableNow && !p.Available:
		return false
	case f.VerifiedOnly && !p.Verified:
		return false
	}
	return true
}

// sortCandidates orders candidates by key. Distance then provider id break every tie
// so identical inputs always produce the same order.
func sortCandidates(candidates []Candidate, key SortKey) {
	byDistance := func(a, b Candidate) bool {
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.Provider.ID < b.Provider.ID
	}

	var less func(a, b Candidate) bool
	switch key {
	case SortByRating:
		less = func(a, b Candidate) bool {
			ra, rb := a.Provider.Rating.Average(), b.Provider.Rating.Average()
			if ra != rb {
				return ra > rb
			}
			if a.Provider.Rating.Count != b.Provider.Rating.Count {
				return a.Provider.Rating.Count > b.Provider.Rating.Count
			}
			return byDistance(a, b)
		}
	case SortByPriceLow:
		less = func(a, b Candidate) bool {
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return byDistance(a, b)
		}
	case SortByPriceHigh:
		less = func(a, b Candidate) bool {
			if a.Price != b.Price {
				return a.Price > b.Price
			}
			return byDistance(a, b)
		}
	case SortByAvailability:
		less = func(a, b Candidate) bool {
			if a.Provider.Available != b.Provider.Available {
				return a.Provider.Available
			}
			return byDistance(a, b)
		}
	default:
		less = byDistance
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})
}
