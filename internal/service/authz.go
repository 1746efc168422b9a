package service

import "homeservices/internal/domain"

func requireActor(actor domain.Actor) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor domain.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// requireSelfOrAdmin allows the identity id acting in role, or any admin.
func requireSelfOrAdmin(actor domain.Actor, role domain.Role, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || actor.Is(role, id) {
		return nil
	}
	return ErrForbidden
}

// authorizeBookingEvent enforces who may move a booking with ev.
// Providers drive execution; either party may cancel; admins may do anything.
func authorizeBookingEvent(actor domain.Actor, booking *domain.Booking, ev domain.BookingEvent) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}

	switch ev {
	case domain.BookingEventCancel:
		if actor.Is(domain.RoleClient, booking.ClientID) || actor.Is(domain.RoleProvider, booking.ProviderID) {
			return nil
		}
	default:
		if actor.Is(domain.RoleProvider, booking.ProviderID) {
			return nil
		}
	}
	return ErrForbidden
}

// authorizeBookingRead allows either party or an admin.
func authorizeBookingRead(actor domain.Actor, clientID, providerID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || actor.Is(domain.RoleClient, clientID) || actor.Is(domain.RoleProvider, providerID) {
		return nil
	}
	return ErrForbidden
}
