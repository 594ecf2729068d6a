package service

import (
	"fmt"

	"homeclean/internal/domain"
)

// AuthorizeTransition decides whether actor may move booking to the target status.
// Checks run in order: party membership, whether any rule reaches the target, role for the target,
// then the source state.
func AuthorizeTransition(booking *domain.Booking, actor domain.Actor, to domain.BookingStatus) error {
	if !booking.IsParty(actor) {
		return ErrNotBookingParty
	}

	roles := domain.RolesForTarget(to)
	if len(roles) == 0 {
		return fmt.Errorf("%w: cannot move a booking to %s", ErrInvalidTransition, to)
	}

	permitted := false
	for _, r := range roles {
		if r == actor.Role {
			permitted = true
			break
		}
	}
	if !permitted {
		return fmt.Errorf("%w: only %v may set %s", ErrRoleNotPermitted, roles, to)
	}

	if !domain.CanTransition(booking.Status, to, actor.Role) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, to)
	}

	return nil
}
