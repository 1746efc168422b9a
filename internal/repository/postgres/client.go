package postgres

import (
	"context"
	"database/sql"
	"errors"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

// ClientRepository is a PostgreSQL implementation of repository.ClientRepository.
type ClientRepository struct {
	q Querier
}

// NewClientRepository creates a new PostgreSQL client repository.
func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{q: db}
}

// NewClientRepositoryWithTx creates a client repository using a transaction.
func NewClientRepositoryWithTx(tx *sql.Tx) *ClientRepository {
	return &ClientRepository{q: tx}
}

// Create adds a new client.
func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (id, name, phone, home_lng, home_lat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.Phone,
		client.Home.Lng,
		client.Home.Lat,
		client.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a client by ID.
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	query := `SELECT id, name, phone, home_lng, home_lat, created_at FROM clients WHERE id = $1`

	var client domain.Client
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.Home.Lng,
		&client.Home.Lat,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &client, nil
}
