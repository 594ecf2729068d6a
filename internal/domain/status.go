package domain

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// ActiveStatuses are the states that occupy a cleaner's calendar.
var ActiveStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusInProgress,
}

// ParseBookingStatus converts a wire value into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return BookingStatus(s), nil
	default:
		return "", ErrUnknownStatus
	}
}

// IsActive reports whether the booking still holds its slot.
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}

// transitions lists, per source state, the reachable targets and which roles may request them.
// Nothing moves a booking into in_progress; the state is kept so that stored rows remain valid.
var transitions = map[BookingStatus]map[BookingStatus][]Role{
	BookingStatusPending: {
		BookingStatusConfirmed: {RoleCleaner},
		BookingStatusRejected:  {RoleCleaner},
		BookingStatusCancelled: {RoleCustomer, RoleCleaner},
	},
	BookingStatusConfirmed: {
		BookingStatusCancelled: {RoleCustomer, RoleCleaner},
		BookingStatusCompleted: {RoleCleaner},
	},
	BookingStatusInProgress: {
		BookingStatusCancelled: {RoleCustomer, RoleCleaner},
		BookingStatusCompleted: {RoleCleaner},
	},
}

// RolesForTarget returns every role allowed to request the target from at least one state.
func RolesForTarget(to BookingStatus) []Role {
	seen := make(map[Role]bool)
	var roles []Role
	for _, targets := range transitions {
		for _, r := range targets[to] {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	}
	return roles
}

// CanTransition reports whether role may move a booking from one state to another.
func CanTransition(from, to BookingStatus, role Role) bool {
	for _, r := range transitions[from][to] {
		if r == role {
			return true
		}
	}
	return false
}

// HasEdge reports whether the table contains the pair at all, regardless of role.
func HasEdge(from, to BookingStatus) bool {
	_, ok := transitions[from][to]
	return ok
}
