package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

const providerColumns = `id, business_name, phone, categories, available, verified, suspended,
	rating_sum, rating_count, base_price, per_km_rate, created_at, updated_at`

// ProviderRepository is a PostgreSQL implementation of repository.ProviderRepository.
type ProviderRepository struct {
	q Querier
}

// NewProviderRepository creates a new PostgreSQL provider repository.
func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{q: db}
}

// NewProviderRepositoryWithTx creates a provider repository using a transaction.
func NewProviderRepositoryWithTx(tx *sql.Tx) *ProviderRepository {
	return &ProviderRepository{q: tx}
}

// Create adds a new provider.
func (r *ProviderRepository) Create(ctx context.Context, provider *domain.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		provider.ID,
		provider.BusinessName,
		provider.Phone,
		pq.Array(categoriesToStrings(provider.Categories)),
		provider.Available && !provider.Suspended,
		provider.Verified,
		provider.Suspended,
		provider.Rating.Sum,
		provider.Rating.Count,
		provider.Pricing.BasePrice,
		provider.Pricing.PerKmRate,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a provider by ID.
func (r *ProviderRepository) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	provider, err := scanProvider(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return provider, nil
}

// GetByIDs retrieves the providers that exist among ids using a single query.
func (r *ProviderRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Provider, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = ANY($1)`
	return r.list(ctx, query, pq.Array(ids))
}

// GetAll retrieves all providers.
func (r *ProviderRepository) GetAll(ctx context.Context) ([]*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY created_at DESC LIMIT 100`
	return r.list(ctx, query)
}

func (r *ProviderRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Provider, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []*domain.Provider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, rows.Err()
}

// SetAvailability updates the availability flag. A suspended provider cannot become available.
func (r *ProviderRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `
		UPDATE providers
		SET available = $2, updated_at = now()
		WHERE id = $1 AND (NOT $2::boolean OR NOT suspended)
	`

	result, err := r.q.ExecContext(ctx, query, id, available)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		found, err := exists(ctx, r.q, "providers", id)
		if err != nil {
			return err
		}
		if !found {
			return repository.ErrNotFound
		}
		return repository.ErrProviderSuspended
	}

	return nil
}

// SetVerified updates the verification flag.
func (r *ProviderRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	query := `UPDATE providers SET verified = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, verified)
}

// SetSuspended updates the suspension flag. Suspending clears availability in the same statement.
func (r *ProviderRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	query := `
		UPDATE providers
		SET suspended = $2,
			available = CASE WHEN $2::boolean THEN false ELSE available END,
			updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, suspended)
}

// AddRating accumulates score in one statement so concurrent ratings never lose an update.
func (r *ProviderRepository) AddRating(ctx context.Context, id string, score float64) (domain.RatingStat, error) {
	query := `
		UPDATE providers
		SET rating_sum = rating_sum + $2, rating_count = rating_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING rating_sum, rating_count
	`

	var stat domain.RatingStat
	err := r.q.QueryRowContext(ctx, query, id, score).Scan(&stat.Sum, &stat.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RatingStat{}, repository.ErrNotFound
		}
		return domain.RatingStat{}, err
	}
	return stat, nil
}

func (r *ProviderRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanProvider(row rowScanner) (*domain.Provider, error) {
	var provider domain.Provider
	var categories []string

	err := row.Scan(
		&provider.ID,
		&provider.BusinessName,
		&provider.Phone,
		pq.Array(&categories),
		&provider.Available,
		&provider.Verified,
		&provider.Suspended,
		&provider.Rating.Sum,
		&provider.Rating.Count,
		&provider.Pricing.BasePrice,
		&provider.Pricing.PerKmRate,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	provider.Categories = make([]domain.ServiceCategory, 0, len(categories))
	for _, c := range categories {
		provider.Categories = append(provider.Categories, domain.ServiceCategory(c))
	}
	return &provider, nil
}

func categoriesToStrings(categories []domain.ServiceCategory) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}
