package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

const bookingColumns = `id, client_id, provider_id, category, scheduled_at, dest_lng, dest_lat, description, amount,
	status, status_reason, updated_by, payment_status, payment_reference, payment_amount, payment_updated_at,
	created_at, updated_at`

const defaultListLimit = 100

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, client_id, provider_id, category, scheduled_at, dest_lng, dest_lat, description, amount,
			status, status_reason, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.ClientID,
		booking.ProviderID,
		booking.Category,
		booking.ScheduledAt,
		booking.Destination.Lng,
		booking.Destination.Lat,
		booking.Description,
		booking.Amount,
		booking.Status,
		nullString(booking.StatusReason),
		nullString(booking.UpdatedBy),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// List retrieves bookings matching the filter, newest first.
func (r *BookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	var conds []string
	var args []any
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.ProviderID != "" {
		args = append(args, filter.ProviderID)
		conds = append(conds, fmt.Sprintf("provider_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// Transition applies a status compare-and-swap. The WHERE clause carries the expected
// status so two concurrent transitions on the same booking can never both succeed.
func (r *BookingRepository) Transition(ctx context.Context, t domain.BookingTransition) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, status_reason = $4, updated_by = $5, updated_at = $6
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query,
		t.BookingID,
		t.From,
		t.To,
		nullString(t.Reason),
		nullString(t.ActorID),
		t.At,
	))
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	found, err := exists(ctx, r.q, "bookings", t.BookingID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStaleStatus
}

// SetPayment stores the payment sub-record.
func (r *BookingRepository) SetPayment(ctx context.Context, id string, payment domain.Payment) error {
	query := `
		UPDATE bookings
		SET payment_status = $2, payment_reference = $3, payment_amount = $4, payment_updated_at = $5
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		id,
		payment.Status,
		nullString(payment.Reference),
		payment.Amount,
		payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var statusReason, updatedBy sql.NullString
	var payment nullPayment

	err := row.Scan(
		&booking.ID,
		&booking.ClientID,
		&booking.ProviderID,
		&booking.Category,
		&booking.ScheduledAt,
		&booking.Destination.Lng,
		&booking.Destination.Lat,
		&booking.Description,
		&booking.Amount,
		&booking.Status,
		&statusReason,
		&updatedBy,
		&payment.status,
		&payment.reference,
		&payment.amount,
		&payment.updatedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.StatusReason = statusReason.String
	booking.UpdatedBy = updatedBy.String
	booking.Payment = payment.toDomain()
	return &booking, nil
}

// nullPayment holds the nullable payment columns shared by booking and job reads.
type nullPayment struct {
	status    sql.NullString
	reference sql.NullString
	amount    sql.NullFloat64
	updatedAt sql.NullTime
}

func (p nullPayment) toDomain() *domain.Payment {
	if !p.status.Valid {
		return nil
	}
	return &domain.Payment{
		Status:    domain.PaymentStatus(p.status.String),
		Reference: p.reference.String,
		Amount:    p.amount.Float64,
		UpdatedAt: p.updatedAt.Time,
	}
}
