package domain

import "time"

// JobRating is the score a job received on completion.
type JobRating struct {
	Score   float64
	Comment string
	RatedAt time.Time
}

// Job is the execution record of an accepted booking.
// Status is read from the booking and never stored on the job itself.
type Job struct {
	ID              string
	BookingID       string
	ProviderID      string
	ClientID        string
	Category        ServiceCategory
	Destination     Point
	ScheduledAt     time.Time
	Status          BookingStatus
	StartedAt       time.Time
	CompletedAt     time.Time
	CompletionNotes string
	DistanceMeters  float64
	DurationSeconds int64
	Rating          *JobRating
	Payment         *Payment
	CreatedAt       time.Time
}

// NewJobFromBooking copies the execution data of b into a new job record.
func NewJobFromBooking(id string, b *Booking, now time.Time) *Job {
	return &Job{
		ID:          id,
		BookingID:   b.ID,
		ProviderID:  b.ProviderID,
		ClientID:    b.ClientID,
		Category:    b.Category,
		Destination: b.Destination,
		ScheduledAt: b.ScheduledAt,
		Status:      b.Status,
		CreatedAt:   now,
	}
}

// JobStart holds the execution data recorded when work begins.
type JobStart struct {
	BookingID      string
	StartedAt      time.Time
	DistanceMeters float64
}

// JobCompletion holds the execution data recorded when work ends.
type JobCompletion struct {
	BookingID   string
	CompletedAt time.Time
	Notes       string
}
