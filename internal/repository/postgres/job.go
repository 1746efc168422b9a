package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

// Status and payment come from the owning booking.
const jobSelect = `
	SELECT j.id, j.booking_id, j.provider_id, j.client_id, j.category, j.dest_lng, j.dest_lat, j.scheduled_at,
		b.status, j.started_at, j.completed_at, j.completion_notes, j.distance_meters, j.duration_seconds,
		j.rating_score, j.rating_comment, j.rated_at,
		b.payment_status, b.payment_reference, b.payment_amount, b.payment_updated_at,
		j.created_at
	FROM jobs j
	JOIN bookings b ON b.id = j.booking_id`

// JobRepository is a PostgreSQL implementation of repository.JobRepository.
type JobRepository struct {
	q Querier
}

// NewJobRepository creates a new PostgreSQL job repository.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{q: db}
}

// NewJobRepositoryWithTx creates a job repository using a transaction.
func NewJobRepositoryWithTx(tx *sql.Tx) *JobRepository {
	return &JobRepository{q: tx}
}

// Create persists a new job. The unique booking_id turns a second insert into ErrDuplicate.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, booking_id, provider_id, client_id, category, dest_lng, dest_lat, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		job.ID,
		job.BookingID,
		job.ProviderID,
		job.ClientID,
		job.Category,
		job.Destination.Lng,
		job.Destination.Lat,
		job.ScheduledAt,
		job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrDuplicate
	}

	return nil
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return r.getOne(ctx, jobSelect+` WHERE j.id = $1`, id)
}

// GetByBookingID retrieves the job of a booking.
func (r *JobRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Job, error) {
	return r.getOne(ctx, jobSelect+` WHERE j.booking_id = $1`, bookingID)
}

func (r *JobRepository) getOne(ctx context.Context, query string, arg string) (*domain.Job, error) {
	job, err := scanJob(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List retrieves jobs matching the filter, newest first.
func (r *JobRepository) List(ctx context.Context, filter repository.JobFilter) ([]*domain.Job, error) {
	var conds []string
	var args []any
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("j.client_id = $%d", len(args)))
	}
	if filter.ProviderID != "" {
		args = append(args, filter.ProviderID)
		conds = append(conds, fmt.Sprintf("j.provider_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := jobSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY j.created_at DESC LIMIT $%d", len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkStarted records the start of execution.
func (r *JobRepository) MarkStarted(ctx context.Context, start domain.JobStart) error {
	query := `UPDATE jobs SET started_at = $2, distance_meters = $3 WHERE booking_id = $1`
	return r.exec(ctx, query, start.BookingID, start.StartedAt, start.DistanceMeters)
}

// MarkCompleted records the end of execution. Duration is derived from started_at in SQL.
func (r *JobRepository) MarkCompleted(ctx context.Context, completion domain.JobCompletion) error {
	query := `
		UPDATE jobs
		SET completed_at = $2::timestamptz,
			completion_notes = $3,
			duration_seconds = CASE
				WHEN started_at IS NULL THEN 0
				ELSE GREATEST(0, EXTRACT(EPOCH FROM ($2::timestamptz - started_at)))::bigint
			END
		WHERE booking_id = $1
	`
	return r.exec(ctx, query, completion.BookingID, completion.CompletedAt, completion.Notes)
}

// RecordRating stores the rating once. The rated_at IS NULL guard fences retried completions.
func (r *JobRepository) RecordRating(ctx context.Context, bookingID string, rating domain.JobRating) error {
	query := `
		UPDATE jobs
		SET rating_score = $2, rating_comment = $3, rated_at = $4
		WHERE booking_id = $1 AND rated_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, bookingID, rating.Score, nullString(rating.Comment), rating.RatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var found bool
		err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE booking_id = $1)`, bookingID).Scan(&found)
		if err != nil {
			return err
		}
		if !found {
			return repository.ErrNotFound
		}
		return repository.ErrAlreadyRated
	}

	return nil
}

func (r *JobRepository) exec(ctx context.Context, query string, args ...any) error {
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

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var startedAt, completedAt, ratedAt sql.NullTime
	var notes, ratingComment sql.NullString
	var ratingScore sql.NullFloat64
	var payment nullPayment

	err := row.Scan(
		&job.ID,
		&job.BookingID,
		&job.ProviderID,
		&job.ClientID,
		&job.Category,
		&job.Destination.Lng,
		&job.Destination.Lat,
		&job.ScheduledAt,
		&job.Status,
		&startedAt,
		&completedAt,
		&notes,
		&job.DistanceMeters,
		&job.DurationSeconds,
		&ratingScore,
		&ratingComment,
		&ratedAt,
		&payment.status,
		&payment.reference,
		&payment.amount,
		&payment.updatedAt,
		&job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.StartedAt = startedAt.Time
	job.CompletedAt = completedAt.Time
	job.CompletionNotes = notes.String
	if ratedAt.Valid {
		job.Rating = &domain.JobRating{
			Score:   ratingScore.Float64,
			Comment: ratingComment.String,
			RatedAt: ratedAt.Time,
		}
	}
	job.Payment = payment.toDomain()
	return &job, nil
}
