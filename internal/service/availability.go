package service

import (
	"context"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// AvailabilityChecker answers whether a cleaner is free for a slot on a date.
// The answer is advisory; the repository re-checks when it commits.
type AvailabilityChecker struct {
	bookings repository.BookingRepository
}

// NewAvailabilityChecker creates a new AvailabilityChecker.
func NewAvailabilityChecker(bookings repository.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// IsAvailable reports whether no active booking of the cleaner overlaps the slot.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, cleanerID string, date domain.Date, start domain.TimeOfDay, durationHours float64) (bool, error) {
	slot, err := domain.NewSlot(start, durationHours)
	if err != nil {
		return false, err
	}

	existing, err := a.bookings.FindActiveForCleaner(ctx, cleanerID, date)
	if err != nil {
		return false, err
	}

	return domain.FirstOverlap(slot, existing) == nil, nil
}
