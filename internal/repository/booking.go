package repository

import (
	"context"
	"time"

	"homeclean/internal/domain"
)

// PartyQuery selects the bookings of one marketplace party.
type PartyQuery struct {
	Role    domain.Role
	PartyID string
	Status  *domain.BookingStatus
	Skip    int
	Limit   int
}

// StatusChange is a compare-and-swap status update. It applies only while the
// stored version still equals ExpectedVersion.
type StatusChange struct {
	BookingID          string
	ExpectedVersion    int
	Status             domain.BookingStatus
	CancelledBy        string
	CancellationReason string
	UpdatedAt          time.Time
}

// BookingRepository defines the persistence operations for bookings.
// Implementations hold no authorization or transition rules.
type BookingRepository interface {
	// AtomicInsert re-checks the cleaner's active bookings for the day and inserts
	// the booking in one atomic unit. Returns ErrSlotTaken on overlap.
	AtomicInsert(ctx context.Context, booking *domain.Booking) error

	// FindByID retrieves a booking by ID.
	FindByID(ctx context.Context, id string) (*domain.Booking, error)

	// FindByParty returns one page of a party's bookings, newest first, and the total match count.
	FindByParty(ctx context.Context, q PartyQuery) ([]*domain.Booking, int, error)

	// FindActiveForCleaner returns the cleaner's active bookings on a single date.
	FindActiveForCleaner(ctx context.Context, cleanerID string, date domain.Date) ([]*domain.Booking, error)

	// UpdateStatus applies the change and returns the stored booking.
	// Returns ErrNotFound or ErrStaleVersion.
	UpdateStatus(ctx context.Context, change StatusChange) (*domain.Booking, error)

	// UpdatePaymentStatus records the gateway's settlement state.
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Booking, error)
}

// ServiceCatalog is the read-only view of cleaners' service listings.
type ServiceCatalog interface {
	// GetServiceByID retrieves a service listing by ID.
	GetServiceByID(ctx context.Context, id string) (*domain.CleaningService, error)
}
