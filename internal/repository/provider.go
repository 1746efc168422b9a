package repository

import (
	"context"

	"homeservices/internal/domain"
)

// ProviderRepository defines the persistence operations for providers.
// Location is not persisted here; it lives in the location index.
type ProviderRepository interface {
	// Create adds a new provider.
	Create(ctx context.Context, provider *domain.Provider) error

	// GetByID retrieves a provider by ID.
	GetByID(ctx context.Context, id string) (*domain.Provider, error)

	// GetByIDs retrieves the providers that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Provider, error)

	// GetAll retrieves all providers.
	GetAll(ctx context.Context) ([]*domain.Provider, error)

	// SetAvailability updates the availability flag.
	// Returns ErrProviderSuspended when available is true and the provider is suspended.
	SetAvailability(ctx context.Context, id string, available bool) error

	// SetVerified updates the verification flag.
	SetVerified(ctx context.Context, id string, verified bool) error

	// SetSuspended updates the suspension flag; suspending also clears availability.
	SetSuspended(ctx context.Context, id string, suspended bool) error

	// AddRating folds score into the rating statistic in a single atomic update
	// and returns the statistic after the update.
	AddRating(ctx context.Context, id string, score float64) (domain.RatingStat, error)
}
