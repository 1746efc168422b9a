package repository

import (
	"context"

	"homeservices/internal/domain"
)

// BookingFilter narrows a booking listing. Empty fields match everything.
type BookingFilter struct {
	ClientID   string
	ProviderID string
	Status     domain.BookingStatus
	Limit      int
}

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List retrieves bookings matching the filter, newest first.
	List(ctx context.Context, filter BookingFilter) ([]*domain.Booking, error)

	// Transition moves a booking from t.From to t.To in one conditional update.
	// Returns ErrNotFound if the booking does not exist and ErrStaleStatus
	// if it is no longer in t.From.
	Transition(ctx context.Context, t domain.BookingTransition) (*domain.Booking, error)

	// SetPayment stores the payment sub-record.
	SetPayment(ctx context.Context, id string, payment domain.Payment) error
}
