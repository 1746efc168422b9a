package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeservices/internal/domain"
	"homeservices/internal/observability"
	"homeservices/internal/redis"
	"homeservices/internal/repository"
)

// scheduleSkew tolerates clock drift between client and server on ScheduledAt.
const scheduleSkew = 5 * time.Minute

// BookingService drives the booking lifecycle.
type BookingService struct {
	tx            repository.Transactor
	bookingRepo   repository.BookingRepository
	clientRepo    repository.ClientRepository
	matching      MatchingServiceInterface
	jobs          *JobService
	ratings       *RatingService
	locationStore redis.LocationStoreInterface
	notifications *NotificationService
	logger        *slog.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	tx repository.Transactor,
	bookingRepo repository.BookingRepository,
	clientRepo repository.ClientRepository,
	matching MatchingServiceInterface,
	jobs *JobService,
	ratings *RatingService,
	locationStore redis.LocationStoreInterface,
	notifications *NotificationService,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		tx:            tx,
		bookingRepo:   bookingRepo,
		clientRepo:    clientRepo,
		matching:      matching,
		jobs:          jobs,
		ratings:       ratings,
		locationStore: locationStore,
		notifications: notifications,
		logger:        logger.With("component", "booking"),
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	ClientID    string
	ProviderID  string
	Category    domain.ServiceCategory
	ScheduledAt time.Time
	Destination *domain.Point // Optional: defaults to the client's home
	Description string
}

// CompleteBookingRequest contains the parameters for completing a booking.
type CompleteBookingRequest struct {
	Notes   string
	Score   *float64 // Optional: rates the job in the same transaction
	Comment string
}

// AcceptResult is the outcome of accepting a booking.
type AcceptResult struct {
	Booking *domain.Booking
	Job     *domain.Job
}

// CompleteResult is the outcome of completing a booking.
type CompleteResult struct {
	Booking       *domain.Booking
	Job           *domain.Job
	Rated         bool
	ProviderStats domain.RatingStat
}

// RateResult is the outcome of rating a completed booking.
type RateResult struct {
	Booking       *domain.Booking
	Score         float64
	ProviderStats domain.RatingStat
}

// CreateBooking requests a specific provider for a service. The booking starts pending.
func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if req.ClientID == "" && actor.Role == domain.RoleClient {
		req.ClientID = actor.ID
	}
	if err := requireSelfOrAdmin(actor, domain.RoleClient, req.ClientID); err != nil {
		return nil, err
	}
	if err := validateCreateBooking(req, time.Now()); err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	destination := client.Home
	if req.Destination != nil {
		destination = *req.Destination
	}
	if !destination.Valid() {
		return nil, ErrInvalidLocation
	}

	candidate, err := s.matching.CheckEligibility(ctx, EligibilityRequest{
		ProviderID:  req.ProviderID,
		Category:    req.Category,
		Destination: destination,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	booking := &domain.Booking{
		ID:          uuid.New().String(),
		ClientID:    req.ClientID,
		ProviderID:  req.ProviderID,
		Category:    req.Category,
		ScheduledAt: req.ScheduledAt.UTC(),
		Destination: destination,
		Description: strings.TrimSpace(req.Description),
		Amount:      candidate.Price,
		Status:      domain.BookingStatusPending,
		UpdatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"client_id", booking.ClientID,
		"provider_id", booking.ProviderID,
		"category", booking.Category,
		"amount", booking.Amount,
	)
	s.notifications.NotifyBookingRequested(ctx, booking)
	return booking, nil
}

// AcceptBooking accepts a pending booking and materializes its job atomically.
func (s *BookingService) AcceptBooking(ctx context.Context, actor domain.Actor, bookingID string) (*AcceptResult, error) {
	var job *domain.Job
	booking, err := s.apply(ctx, actor, bookingID, domain.BookingEventAccept, "",
		func(ctx context.Context, repos repository.Repositories, b *domain.Booking) error {
			var err error
			job, err = s.jobs.materialize(ctx, repos, b)
			return err
		})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyBookingAccepted(ctx, booking)
	s.jobs.created(ctx, job)
	return &AcceptResult{Booking: booking, Job: job}, nil
}

// RejectBooking declines a pending booking.
func (s *BookingService) RejectBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	booking, err := s.apply(ctx, actor, bookingID, domain.BookingEventReject, reason, nil)
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyBookingRejected(ctx, booking)
	return booking, nil
}

// CancelBooking cancels a pending or accepted booking on behalf of either party.
func (s *BookingService) CancelBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	booking, err := s.apply(ctx, actor, bookingID, domain.BookingEventCancel, reason, nil)
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyBookingCancelled(ctx, booking, actor)
	return booking, nil
}

// StartBooking begins work on an accepted booking and records the provider's travel distance.
func (s *BookingService) StartBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	booking, err := s.apply(ctx, actor, bookingID, domain.BookingEventStart, "",
		func(ctx context.Context, repos repository.Repositories, b *domain.Booking) error {
			return repos.Jobs.MarkStarted(ctx, domain.JobStart{
				BookingID:      b.ID,
				StartedAt:      b.UpdatedAt,
				DistanceMeters: s.travelDistance(ctx, b),
			})
		})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyJobStarted(ctx, booking)
	return booking, nil
}

// CompleteBooking finishes an in-progress booking, optionally rating it in the same transaction.
func (s *BookingService) CompleteBooking(ctx context.Context, actor domain.Actor, bookingID string, req CompleteBookingRequest) (*CompleteResult, error) {
	if req.Score != nil {
		// Only the client rates through RateBooking; a provider cannot score its own job.
		if !actor.IsAdmin() {
			if err := requireActor(actor); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: only an admin may rate on completion", ErrForbidden)
		}
		if err := validateScore(*req.Score); err != nil {
			return nil, err
		}
	}

	result := &CompleteResult{}
	booking, err := s.apply(ctx, actor, bookingID, domain.BookingEventComplete, "",
		func(ctx context.Context, repos repository.Repositories, b *domain.Booking) error {
			err := repos.Jobs.MarkCompleted(ctx, domain.JobCompletion{
				BookingID:   b.ID,
				CompletedAt: b.UpdatedAt,
				Notes:       strings.TrimSpace(req.Notes),
			})
			if err != nil {
				return err
			}

			if req.Score != nil {
				stat, err := s.ratings.rateBooking(ctx, repos, b, *req.Score, req.Comment)
				if err != nil {
					return err
				}
				result.Rated = true
				result.ProviderStats = stat
			}

			result.Job, err = repos.Jobs.GetByBookingID(ctx, b.ID)
			return err
		})
	if err != nil {
		return nil, err
	}
	result.Booking = booking

	s.notifications.NotifyJobCompleted(ctx, booking)
	if result.Rated {
		s.ratings.applied(ctx, booking.ProviderID)
		s.notifications.NotifyRatingReceived(ctx, booking, *req.Score, result.ProviderStats.Average())
	}
	return result, nil
}

// RateBooking lets the client rate a completed booking once.
func (s *BookingService) RateBooking(ctx context.Context, actor domain.Actor, bookingID string, score float64, comment string) (*RateResult, error) {
	if err := validateScore(score); err != nil {
		return nil, err
	}

	var (
		booking *domain.Booking
		stat    domain.RatingStat
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		booking, err = repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := requireSelfOrAdmin(actor, domain.RoleClient, booking.ClientID); err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusCompleted {
			return fmt.Errorf("%w: cannot rate a %s booking", ErrInvalidTransition, booking.Status)
		}

		stat, err = s.ratings.rateBooking(ctx, repos, booking, score, comment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ratings.applied(ctx, booking.ProviderID)
	s.logger.Info("booking rated", "booking_id", booking.ID, "provider_id", booking.ProviderID, "score", score)
	s.notifications.NotifyRatingReceived(ctx, booking, score, stat.Average())
	return &RateResult{Booking: booking, Score: score, ProviderStats: stat}, nil
}

// GetBooking retrieves a booking visible to actor.
func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBookingRead(actor, booking.ClientID, booking.ProviderID); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListBookings lists the actor's bookings, newest first. Admins see all bookings.
func (s *BookingService) ListBookings(ctx context.Context, actor domain.Actor, status domain.BookingStatus, limit int) ([]*domain.Booking, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, status)
	}

	filter := repository.BookingFilter{Status: status, Limit: clampLimit(limit)}
	switch actor.Role {
	case domain.RoleClient:
		filter.ClientID = actor.ID
	case domain.RoleProvider:
		filter.ProviderID = actor.ID
	}
	return s.bookingRepo.List(ctx, filter)
}

// apply runs one lifecycle event in a transaction: read, authorize, validate against the observed
// state, compare-and-swap, then after with the updated booking through the same repos.
func (s *BookingService) apply(
	ctx context.Context,
	actor domain.Actor,
	bookingID string,
	ev domain.BookingEvent,
	reason string,
	after func(ctx context.Context, repos repository.Repositories, b *domain.Booking) error,
) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBooking
	}

	var updated *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := authorizeBookingEvent(actor, current, ev); err != nil {
			return err
		}

		to, err := current.Status.Next(ev)
		if err != nil {
			return fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, ev, current.Status)
		}

		updated, err = repos.Bookings.Transition(ctx, domain.BookingTransition{
			BookingID: current.ID,
			From:      current.Status,
			To:        to,
			Reason:    strings.TrimSpace(reason),
			ActorID:   actor.ID,
			At:        time.Now(),
		})
		if err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrConflict
			}
			return err
		}

		if after != nil {
			return after(ctx, repos, updated)
		}
		return nil
	})

	observability.BookingTransitionsTotal.WithLabelValues(string(ev), transitionOutcome(err)).Inc()
	if err != nil {
		s.logger.Debug("booking transition failed", "booking_id", bookingID, "event", ev, "error", err)
		return nil, err
	}

	s.logger.Info("booking transitioned",
		"booking_id", updated.ID,
		"event", ev,
		"status", updated.Status,
		"actor_id", actor.ID,
	)
	return updated, nil
}

// travelDistance is the straight-line distance from the provider's indexed location to the job, or 0 when unknown.
func (s *BookingService) travelDistance(ctx context.Context, b *domain.Booking) float64 {
	location, err := s.locationStore.GetLocation(ctx, b.ProviderID)
	if err != nil {
		if !errors.Is(err, redis.ErrLocationNotFound) {
			s.logger.Warn("failed to read provider location", "provider_id", b.ProviderID, "error", err)
		}
		return 0
	}
	return domain.DistanceMeters(location, b.Destination)
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrConflict):
		return observability.OutcomeConflict
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrForbidden), errors.Is(err, repository.ErrNotFound):
		return observability.OutcomeRejected
	default:
		return observability.OutcomeError
	}
}

func validateCreateBooking(req CreateBookingRequest, now time.Time) error {
	if req.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidBooking)
	}
	if req.ProviderID == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidBooking)
	}
	if !req.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	if req.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrInvalidSchedule)
	}
	if req.ScheduledAt.Before(now.Add(-scheduleSkew)) {
		return fmt.Errorf("%w: scheduled time is in the past", ErrInvalidSchedule)
	}
	return nil
}
