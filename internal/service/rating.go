package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"homeservices/internal/domain"
	"homeservices/internal/observability"
	"homeservices/internal/redis"
	"homeservices/internal/repository"
)

// RatingService folds job scores into provider rating statistics.
type RatingService struct {
	providerRepo repository.ProviderRepository
	cacheStore   redis.ProviderCacheInterface
	logger       *slog.Logger
}

// NewRatingService creates a new RatingService. cacheStore may be nil.
func NewRatingService(
	providerRepo repository.ProviderRepository,
	cacheStore redis.ProviderCacheInterface,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		providerRepo: providerRepo,
		cacheStore:   cacheStore,
		logger:       logger.With("component", "rating"),
	}
}

// ApplyRating adds score to the provider's statistic and returns the new average.
// Concurrent calls never lose an update and the result does not depend on their order.
func (s *RatingService) ApplyRating(ctx context.Context, providerID string, score float64) (float64, error) {
	if err := validateScore(score); err != nil {
		return 0, err
	}

	stat, err := s.providerRepo.AddRating(ctx, providerID, score)
	if err != nil {
		return 0, err
	}

	s.applied(ctx, providerID)
	return stat.Average(), nil
}

// rateBooking records the job rating once and accumulates it on the provider, both through repos.
// The job fence keeps a retried completion or rating from being counted twice.
func (s *RatingService) rateBooking(ctx context.Context, repos repository.Repositories, booking *domain.Booking, score float64, comment string) (domain.RatingStat, error) {
	rating := domain.JobRating{Score: score, Comment: comment, RatedAt: time.Now()}
	if err := repos.Jobs.RecordRating(ctx, booking.ID, rating); err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			return domain.RatingStat{}, ErrAlreadyRated
		}
		return domain.RatingStat{}, err
	}

	return repos.Providers.AddRating(ctx, booking.ProviderID, score)
}

// applied runs once a rating is durable.
func (s *RatingService) applied(ctx context.Context, providerID string) {
	observability.RatingsAppliedTotal.Inc()
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateProvider(ctx, providerID); err != nil {
		s.logger.Warn("failed to invalidate provider cache", "provider_id", providerID, "error", err)
	}
}

func validateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return ErrInvalidRating
	}
	return nil
}
