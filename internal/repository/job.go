package repository

import (
	"context"

	"homeservices/internal/domain"
)

// JobFilter narrows a job listing. Empty fields match everything.
type JobFilter struct {
	ClientID   string
	ProviderID string
	Limit      int
}

// JobRepository defines the persistence operations for jobs.
// Job status is read from the owning booking and is never written here.
type JobRepository interface {
	// Create persists a new job.
	// Returns ErrDuplicate if a job already references the booking.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by ID.
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// GetByBookingID retrieves the job of a booking.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Job, error)

	// List retrieves jobs matching the filter, newest first.
	List(ctx context.Context, filter JobFilter) ([]*domain.Job, error)

	// MarkStarted records the start of execution.
	MarkStarted(ctx context.Context, start domain.JobStart) error

	// MarkCompleted records the end of execution and derives the duration.
	MarkCompleted(ctx context.Context, completion domain.JobCompletion) error

	// RecordRating stores the rating once.
	// Returns ErrAlreadyRated if the job was rated before.
	RecordRating(ctx context.Context, bookingID string, rating domain.JobRating) error
}
