package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeservices/internal/domain"
	"homeservices/internal/observability"
	"homeservices/internal/redis"
	"homeservices/internal/repository"
)

// ProviderService handles provider registration, location and administrative status.
type ProviderService struct {
	locationStore redis.LocationStoreInterface
	cacheStore    redis.ProviderCacheInterface
	providerRepo  repository.ProviderRepository
	logger        *slog.Logger
}

// NewProviderService creates a new ProviderService. cacheStore may be nil.
func NewProviderService(
	locationStore redis.LocationStoreInterface,
	cacheStore redis.ProviderCacheInterface,
	providerRepo repository.ProviderRepository,
	logger *slog.Logger,
) *ProviderService {
	return &ProviderService{
		locationStore: locationStore,
		cacheStore:    cacheStore,
		providerRepo:  providerRepo,
		logger:        logger.With("component", "provider"),
	}
}

// RegisterProviderRequest contains the parameters for registering a provider.
type RegisterProviderRequest struct {
	BusinessName string
	Phone        string
	Categories   []domain.ServiceCategory
	Location     domain.Point
	BasePrice    float64
	PerKmRate    float64
	Available    bool
}

// Register creates a provider and indexes its initial location.
func (s *ProviderService) Register(ctx context.Context, req RegisterProviderRequest) (*domain.Provider, error) {
	if err := validateRegisterProvider(req); err != nil {
		return nil, err
	}

	now := time.Now()
	provider := &domain.Provider{
		ID:           uuid.New().String(),
		BusinessName: strings.TrimSpace(req.BusinessName),
		Phone:        strings.TrimSpace(req.Phone),
		Categories:   dedupeCategories(req.Categories),
		Location:     req.Location,
		Available:    req.Available,
		Pricing:      domain.Pricing{BasePrice: req.BasePrice, PerKmRate: req.PerKmRate},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Index first: an orphaned index entry is skipped by search hydration, a provider without a location is not found at all.
	if err := s.locationStore.UpdateLocation(ctx, provider.ID, provider.Location); err != nil {
		return nil, fmt.Errorf("index provider location: %w", err)
	}

	if err := s.providerRepo.Create(ctx, provider); err != nil {
		if rmErr := s.locationStore.RemoveLocation(ctx, provider.ID); rmErr != nil {
			s.logger.Warn("failed to remove orphaned location", "provider_id", provider.ID, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Info("provider registered", "provider_id", provider.ID, "categories", provider.Categories)
	return provider, nil
}

// UpdateLocation replaces a provider's indexed location. Last write wins.
func (s *ProviderService) UpdateLocation(ctx context.Context, actor domain.Actor, providerID string, point domain.Point) error {
	if providerID == "" {
		return ErrInvalidProvider
	}
	if err := requireSelfOrAdmin(actor, domain.RoleProvider, providerID); err != nil {
		return err
	}
	if !point.Valid() {
		return ErrInvalidLocation
	}

	if err := s.locationStore.UpdateLocation(ctx, providerID, point); err != nil {
		return err
	}

	observability.LocationUpdatesTotal.Inc()
	return nil
}

// SetAvailability toggles whether the provider takes new work.
func (s *ProviderService) SetAvailability(ctx context.Context, actor domain.Actor, providerID string, available bool) (*domain.Provider, error) {
	if err := requireSelfOrAdmin(actor, domain.RoleProvider, providerID); err != nil {
		return nil, err
	}

	if err := s.providerRepo.SetAvailability(ctx, providerID, available); err != nil {
		if errors.Is(err, repository.ErrProviderSuspended) {
			return nil, ErrProviderSuspended
		}
		return nil, err
	}

	s.invalidate(ctx, providerID)
	return s.GetProvider(ctx, providerID)
}

// Verify marks a provider as verified.
func (s *ProviderService) Verify(ctx context.Context, actor domain.Actor, providerID string) (*domain.Provider, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.providerRepo.SetVerified(ctx, providerID, true); err != nil {
		return nil, err
	}

	s.invalidate(ctx, providerID)
	s.logger.Info("provider verified", "provider_id", providerID, "actor_id", actor.ID)
	return s.GetProvider(ctx, providerID)
}

// SetSuspended suspends or reinstates a provider. Suspension also makes the provider unavailable.
func (s *ProviderService) SetSuspended(ctx context.Context, actor domain.Actor, providerID string, suspended bool) (*domain.Provider, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.providerRepo.SetSuspended(ctx, providerID, suspended); err != nil {
		return nil, err
	}

	s.invalidate(ctx, providerID)
	s.logger.Info("provider suspension changed", "provider_id", providerID, "suspended", suspended, "actor_id", actor.ID)
	return s.GetProvider(ctx, providerID)
}

// GetProvider retrieves a provider with its indexed location.
func (s *ProviderService) GetProvider(ctx context.Context, providerID string) (*domain.Provider, error) {
	if providerID == "" {
		return nil, ErrInvalidProvider
	}

	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	location, err := s.locationStore.GetLocation(ctx, providerID)
	switch {
	case err == nil:
		provider.Location = location
	case !errors.Is(err, redis.ErrLocationNotFound):
		s.logger.Warn("failed to read provider location", "provider_id", providerID, "error", err)
	}

	return provider, nil
}

// ListProviders retrieves providers with their indexed locations.
func (s *ProviderService) ListProviders(ctx context.Context) ([]*domain.Provider, error) {
	providers, err := s.providerRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}

	locations, err := s.locationStore.GetLocations(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to read provider locations", "error", err)
		return providers, nil
	}
	for _, p := range providers {
		if loc, ok := locations[p.ID]; ok {
			p.Location = loc
		}
	}
	return providers, nil
}

func (s *ProviderService) invalidate(ctx context.Context, providerID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateProvider(ctx, providerID); err != nil {
		s.logger.Warn("failed to invalidate provider cache", "provider_id", providerID, "error", err)
	}
}

func validateRegisterProvider(req RegisterProviderRequest) error {
	if strings.TrimSpace(req.BusinessName) == "" || strings.TrimSpace(req.Phone) == "" {
		return fmt.Errorf("%w: business name and phone are required", ErrInvalidProvider)
	}
	if len(req.Categories) == 0 {
		return fmt.Errorf("%w: at least one category is required", ErrInvalidCategory)
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
	}
	if !req.Location.Valid() {
		return ErrInvalidLocation
	}
	if !validAmount(req.BasePrice) || !validAmount(req.PerKmRate) {
		return fmt.Errorf("%w: prices must be non-negative", ErrInvalidProvider)
	}
	return nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func dedupeCategories(categories []domain.ServiceCategory) []domain.ServiceCategory {
	seen := make(map[domain.ServiceCategory]bool, len(categories))
	out := make([]domain.ServiceCategory, 0, len(categories))
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
