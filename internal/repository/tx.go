package repository

import "context"

// Repositories groups repositories bound to the same transaction.
type Repositories struct {
	Providers ProviderRepository
	Clients   ClientRepository
	Bookings  BookingRepository
	Jobs      JobRepository
}

// Transactor runs fn inside a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
