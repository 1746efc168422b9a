package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

// PaymentService records payment status reported by the payment collaborator.
// Charging and refunds happen there; only the resulting status lives on the booking.
type PaymentService struct {
	bookingRepo   repository.BookingRepository
	notifications *NotificationService
	logger        *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(bookingRepo repository.BookingRepository, notifications *NotificationService, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		bookingRepo:   bookingRepo,
		notifications: notifications,
		logger:        logger.With("component", "payment"),
	}
}

// AttachPaymentRequest contains the payment status reported for a booking.
type AttachPaymentRequest struct {
	Status    domain.PaymentStatus
	Reference string
	Amount    float64
}

// AttachPayment stores the payment sub-record of a booking as reported.
func (s *PaymentService) AttachPayment(ctx context.Context, actor domain.Actor, bookingID string, req AttachPaymentRequest) (*domain.Booking, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, req.Status)
	}
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be non-negative", ErrInvalidBooking)
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, domain.RoleClient, booking.ClientID); err != nil {
		return nil, err
	}

	payment := domain.Payment{
		Status:    req.Status,
		Reference: strings.TrimSpace(req.Reference),
		Amount:    req.Amount,
		UpdatedAt: time.Now(),
	}
	if err := s.bookingRepo.SetPayment(ctx, booking.ID, payment); err != nil {
		return nil, err
	}
	booking.Payment = &payment

	s.logger.Info("payment attached", "booking_id", booking.ID, "status", payment.Status, "reference", payment.Reference)
	s.notifications.NotifyPaymentUpdated(ctx, booking, payment)
	return booking, nil
}
