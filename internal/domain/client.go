package domain

import "time"

// Client is a customer requesting home services.
type Client struct {
	ID        string
	Name      string
	Phone     string
	Home      Point
	CreatedAt time.Time
}
