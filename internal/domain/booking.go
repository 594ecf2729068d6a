package domain

import "time"

// Address is the location where the cleaning takes place.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Latitude   *float64
	Longitude  *float64
}

// Booking is a reservation of a cleaner's time for one service on one day.
type Booking struct {
	ID         string
	CustomerID string
	CleanerID  string
	ServiceID  string

	ScheduledDate Date
	StartTime     TimeOfDay
	DurationHours float64

	// Prices are snapshotted at creation and never recomputed.
	ServicePrice float64
	PlatformFee  float64
	TotalPrice   float64

	Status        BookingStatus
	PaymentStatus PaymentStatus
	Address       Address

	SpecialInstructions string
	CancellationReason  string
	CancelledBy         string

	// Version increases on every mutation and guards concurrent status updates.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndTime is derived from start and duration.
func (b *Booking) EndTime() TimeOfDay {
	return b.StartTime.AddMinutes(DurationMinutes(b.DurationHours))
}

// Slot returns the booking's occupied interval on its scheduled date.
func (b *Booking) Slot() Slot {
	return Slot{Start: b.StartTime, End: b.EndTime()}
}

// PartyRole returns the role userID plays in this booking, if any.
func (b *Booking) PartyRole(userID string) (Role, bool) {
	switch userID {
	case b.CustomerID:
		return RoleCustomer, true
	case b.CleanerID:
		return RoleCleaner, true
	}
	return "", false
}

// IsParty reports whether the actor is the booking's customer or cleaner in the matching role.
func (b *Booking) IsParty(actor Actor) bool {
	switch actor.Role {
	case RoleCustomer:
		return actor.UserID == b.CustomerID
	case RoleCleaner:
		return actor.UserID == b.CleanerID
	}
	return false
}

// CleaningService is a cleaner's bookable offering, owned by the profile collaborator.
type CleaningService struct {
	ID            string
	CleanerID     string
	Name          string
	Price         float64
	DurationHours float64
	IsActive      bool
}
