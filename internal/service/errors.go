package service

import "errors"

var (
	// ErrInvalidQuery is returned when search coordinates, radius or filters are malformed.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidCategory is returned when a service category is unknown.
	ErrInvalidCategory = errors.New("invalid service category")

	// ErrInvalidProvider is returned when provider registration data is incomplete.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidClient is returned when client registration data is incomplete.
	ErrInvalidClient = errors.New("invalid client")

	// ErrInvalidBooking is returned when a booking request is missing required fields.
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrInvalidSchedule is returned when the scheduled time is missing or in the past.
	ErrInvalidSchedule = errors.New("invalid scheduled time")

	// ErrInvalidRating is returned when a score is outside the accepted range.
	ErrInvalidRating = errors.New("rating out of range")

	// ErrInvalidPaymentStatus is returned when the payment collaborator reports an unknown status.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")

	// ErrInvalidTransition is returned when an event is not allowed from the booking's current state.
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrConflict is returned when a concurrent change won the race for the same booking.
	ErrConflict = errors.New("booking was modified concurrently")

	// ErrAlreadyMaterialized is returned when a job already exists for the booking.
	ErrAlreadyMaterialized = errors.New("job already exists for booking")

	// ErrBookingNotAccepted is returned when materializing a job for a booking that was never accepted.
	ErrBookingNotAccepted = errors.New("booking has not been accepted")

	// ErrAlreadyRated is returned when a job has already been rated.
	ErrAlreadyRated = errors.New("job already rated")

	// ErrProviderNotEligible is returned when the chosen provider cannot take the booking.
	ErrProviderNotEligible = errors.New("provider not eligible for booking")

	// ErrProviderSuspended is returned when a suspended provider tries to become available.
	ErrProviderSuspended = errors.New("provider is suspended")

	// ErrUnauthenticated is returned when no actor identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)
