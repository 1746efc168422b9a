package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"homeservices/internal/domain"
	"homeservices/internal/notify"
)

// NotificationService turns lifecycle events into notifications for the dispatcher.
type NotificationService struct {
	notifier notify.Notifier
}

// NewNotificationService creates a new NotificationService.
// A nil notifier disables notifications.
func NewNotificationService(notifier notify.Notifier) *NotificationService {
	return &NotificationService{notifier: notifier}
}

// NotifyBookingRequested tells the provider a client asked for them.
func (s *NotificationService) NotifyBookingRequested(ctx context.Context, booking *domain.Booking) {
	s.send(ctx, notify.KindBookingRequested, booking.ProviderID,
		"New Booking Request",
		fmt.Sprintf("New %s request scheduled for %s", booking.Category, booking.ScheduledAt.Format(time.RFC3339)),
		bookingData(booking))
}

// NotifyBookingAccepted tells the client the provider accepted.
func (s *NotificationService) NotifyBookingAccepted(ctx context.Context, booking *domain.Booking) {
	s.send(ctx, notify.KindBookingAccepted, booking.ClientID,
		"Booking Accepted",
		"Your provider accepted the booking",
		bookingData(booking))
}

// NotifyBookingRejected tells the client the provider declined.
func (s *NotificationService) NotifyBookingRejected(ctx context.Context, booking *domain.Booking) {
	data := bookingData(booking)
	data["reason"] = booking.StatusReason
	s.send(ctx, notify.KindBookingRejected, booking.ClientID,
		"Booking Rejected",
		"Your provider is unable to take this booking",
		data)
}

// NotifyBookingCancelled tells the party that did not cancel.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking, actor domain.Actor) {
	recipientID := booking.ProviderID
	message := "The client cancelled the booking"
	if actor.Is(domain.RoleProvider, booking.ProviderID) {
		recipientID = booking.ClientID
		message = "The provider cancelled the booking"
	} else if actor.IsAdmin() {
		s.send(ctx, notify.KindBookingCancelled, booking.ClientID, "Booking Cancelled",
			"An administrator cancelled the booking", cancelData(booking))
		message = "An administrator cancelled the booking"
	}

	s.send(ctx, notify.KindBookingCancelled, recipientID, "Booking Cancelled", message, cancelData(booking))
}

// NotifyJobCreated tells the client a job is now tracked for their booking.
func (s *NotificationService) NotifyJobCreated(ctx context.Context, job *domain.Job) {
	s.send(ctx, notify.KindJobCreated, job.ClientID,
		"Job Created",
		fmt.Sprintf("Your %s job is scheduled", job.Category),
		map[string]any{
			"job_id":       job.ID,
			"booking_id":   job.BookingID,
			"provider_id":  job.ProviderID,
			"scheduled_at": job.ScheduledAt,
		})
}

// NotifyJobStarted tells the client work has begun.
func (s *NotificationService) NotifyJobStarted(ctx context.Context, booking *domain.Booking) {
	s.send(ctx, notify.KindJobStarted, booking.ClientID,
		"Job Started",
		"Your provider has started the job",
		bookingData(booking))
}

// NotifyJobCompleted tells the client work is done.
func (s *NotificationService) NotifyJobCompleted(ctx context.Context, booking *domain.Booking) {
	s.send(ctx, notify.KindJobCompleted, booking.ClientID,
		"Job Completed",
		"Your provider marked the job as completed",
		bookingData(booking))
}

// NotifyRatingReceived tells the provider about a new score.
func (s *NotificationService) NotifyRatingReceived(ctx context.Context, booking *domain.Booking, score, average float64) {
	data := bookingData(booking)
	data["score"] = score
	data["average"] = average
	s.send(ctx, notify.KindRatingReceived, booking.ProviderID,
		"New Rating",
		fmt.Sprintf("You received a %.1f star rating", score),
		data)
}

// NotifyPaymentUpdated tells the client the payment status changed.
func (s *NotificationService) NotifyPaymentUpdated(ctx context.Context, booking *domain.Booking, payment domain.Payment) {
	data := bookingData(booking)
	data["payment_status"] = payment.Status
	data["amount"] = payment.Amount
	s.send(ctx, notify.KindPaymentUpdated, booking.ClientID,
		"Payment Update",
		fmt.Sprintf("Payment is %s", payment.Status),
		data)
}

func (s *NotificationService) send(ctx context.Context, kind notify.Kind, recipientID, title, message string, data map[string]any) {
	if s == nil || s.notifier == nil || recipientID == "" {
		return
	}
	s.notifier.Notify(ctx, notify.Notification{
		ID:          uuid.New().String(),
		Kind:        kind,
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Data:        data,
		CreatedAt:   time.Now(),
	})
}

func bookingData(booking *domain.Booking) map[string]any {
	return map[string]any{
		"booking_id":  booking.ID,
		"client_id":   booking.ClientID,
		"provider_id": booking.ProviderID,
		"category":    booking.Category,
		"status":      booking.Status,
	}
}

func cancelData(booking *domain.Booking) map[string]any {
	data := bookingData(booking)
	data["cancelled_by"] = booking.UpdatedBy
	data["reason"] = booking.StatusReason
	return data
}
