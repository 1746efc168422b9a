package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStaleStatus is returned when a status compare-and-swap finds the row in another state.
	ErrStaleStatus = errors.New("entity status changed concurrently")

	// ErrAlreadyRated is returned when a job rating fence has already been passed.
	ErrAlreadyRated = errors.New("job already rated")

	// ErrProviderSuspended is returned when an update would make a suspended provider available.
	ErrProviderSuspended = errors.New("provider is suspended")
)
