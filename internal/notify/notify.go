// Package notify delivers lifecycle notifications asynchronously.
// Callers enqueue and move on; delivery failures are logged and never reported back.
package notify

import (
	"context"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindBookingRequested Kind = "booking_requested"
	KindBookingAccepted  Kind = "booking_accepted"
	KindBookingRejected  Kind = "booking_rejected"
	KindBookingCancelled Kind = "booking_cancelled"
	KindJobCreated       Kind = "job_created"
	KindJobStarted       Kind = "job_started"
	KindJobCompleted     Kind = "job_completed"
	KindRatingReceived   Kind = "rating_received"
	KindPaymentUpdated   Kind = "payment_updated"
)

// Notification is a message addressed to one recipient.
type Notification struct {
	ID          string         `json:"id"`
	Kind        Kind           `json:"kind"`
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Notifier accepts notifications for delivery. Notify never blocks on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Sink performs the actual delivery of a notification.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
	Close() error
}
