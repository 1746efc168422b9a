package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homeservices/internal/domain"
	"homeservices/internal/observability"
	"homeservices/internal/repository"
)

const maxListLimit = 100

// JobService materializes jobs from accepted bookings and serves job reads.
type JobService struct {
	tx            repository.Transactor
	jobRepo       repository.JobRepository
	notifications *NotificationService
	logger        *slog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(
	tx repository.Transactor,
	jobRepo repository.JobRepository,
	notifications *NotificationService,
	logger *slog.Logger,
) *JobService {
	return &JobService{
		tx:            tx,
		jobRepo:       jobRepo,
		notifications: notifications,
		logger:        logger.With("component", "job"),
	}
}

// CreateFromBooking creates the job of an accepted booking.
// The accept path does this already; this entry point repairs bookings that lack one.
func (s *JobService) CreateFromBooking(ctx context.Context, bookingID string) (*domain.Job, error) {
	if bookingID == "" {
		return nil, ErrInvalidBooking
	}

	var job *domain.Job
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		booking, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		job, err = s.materialize(ctx, repos, booking)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.created(ctx, job)
	return job, nil
}

// materialize inserts the job for booking through repos. Existence wins over acceptance so that a
// booking cancelled after acceptance still reports its job.
func (s *JobService) materialize(ctx context.Context, repos repository.Repositories, booking *domain.Booking) (*domain.Job, error) {
	if _, err := repos.Jobs.GetByBookingID(ctx, booking.ID); err == nil {
		return nil, ErrAlreadyMaterialized
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if !booking.Status.WasAccepted() {
		return nil, ErrBookingNotAccepted
	}

	job := domain.NewJobFromBooking(uuid.New().String(), booking, time.Now())
	if err := repos.Jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyMaterialized
		}
		return nil, err
	}
	return job, nil
}

// created runs once a job is committed.
func (s *JobService) created(ctx context.Context, job *domain.Job) {
	observability.JobsMaterializedTotal.Inc()
	s.logger.Info("job created", "job_id", job.ID, "booking_id", job.BookingID, "provider_id", job.ProviderID)
	s.notifications.NotifyJobCreated(ctx, job)
}

// GetJob retrieves a job visible to actor.
func (s *JobService) GetJob(ctx context.Context, actor domain.Actor, jobID string) (*domain.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBookingRead(actor, job.ClientID, job.ProviderID); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJobByBooking retrieves the job of a booking visible to actor.
func (s *JobService) GetJobByBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Job, error) {
	job, err := s.jobRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBookingRead(actor, job.ClientID, job.ProviderID); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs lists the actor's jobs, newest first. Admins see all jobs.
func (s *JobService) ListJobs(ctx context.Context, actor domain.Actor, limit int) ([]*domain.Job, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	filter := repository.JobFilter{Limit: clampLimit(limit)}
	switch actor.Role {
	case domain.RoleClient:
		filter.ClientID = actor.ID
	case domain.RoleProvider:
		filter.ProviderID = actor.ID
	}
	return s.jobRepo.List(ctx, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
