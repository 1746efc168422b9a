package domain

import "time"

// PaymentStatus is the status string reported by the payment collaborator.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment is the payment sub-record attached to a booking.
// Its correctness is owned by the payment collaborator; it is only stored and surfaced here.
type Payment struct {
	Status    PaymentStatus
	Reference string
	Amount    float64
	UpdatedAt time.Time
}
