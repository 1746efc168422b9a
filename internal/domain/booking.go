package domain

import (
	"errors"
	"time"
)

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// BookingEvent is an action that moves a booking between states.
type BookingEvent string

const (
	BookingEventAccept   BookingEvent = "accept"
	BookingEventReject   BookingEvent = "reject"
	BookingEventCancel   BookingEvent = "cancel"
	BookingEventStart    BookingEvent = "start"
	BookingEventComplete BookingEvent = "complete"
)

// ErrIllegalTransition is returned by Next when the event is not allowed from the current state.
var ErrIllegalTransition = errors.New("illegal booking transition")

var bookingTransitions = map[BookingStatus]map[BookingEvent]BookingStatus{
	BookingStatusPending: {
		BookingEventAccept: BookingStatusAccepted,
		BookingEventReject: BookingStatusRejected,
		BookingEventCancel: BookingStatusCancelled,
	},
	BookingStatusAccepted: {
		BookingEventStart:  BookingStatusInProgress,
		BookingEventCancel: BookingStatusCancelled,
	},
	BookingStatusInProgress: {
		BookingEventComplete: BookingStatusCompleted,
	},
}

// Next returns the state reached by applying ev to s.
func (s BookingStatus) Next(ev BookingEvent) (BookingStatus, error) {
	to, ok := bookingTransitions[s][ev]
	if !ok {
		return s, ErrIllegalTransition
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusRejected,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// WasAccepted reports whether a booking in state s went through acceptance.
func (s BookingStatus) WasAccepted() bool {
	switch s {
	case BookingStatusAccepted, BookingStatusInProgress, BookingStatusCompleted:
		return true
	}
	return false
}

// Booking is a client's request for a specific provider to perform a service.
type Booking struct {
	ID           string
	ClientID     string
	ProviderID   string
	Category     ServiceCategory
	ScheduledAt  time.Time
	Destination  Point
	Description  string
	Amount       float64
	Status       BookingStatus
	StatusReason string
	UpdatedBy    string
	Payment      *Payment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookingTransition describes a compare-and-swap on a booking's status.
type BookingTransition struct {
	BookingID string
	From      BookingStatus
	To        BookingStatus
	Reason    string
	ActorID   string
	At        time.Time
}
