// Package memory provides process-local repositories used for development runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// BookingRepository is an in-memory implementation of repository.BookingRepository.
// A single mutex makes AtomicInsert's check-then-insert atomic.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

var _ repository.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository creates an empty in-memory booking repository.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// AtomicInsert persists the booking unless an active booking of the same cleaner overlaps it.
func (r *BookingRepository) AtomicInsert(ctx context.Context, booking *domain.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; exists {
		return repository.ErrSlotTaken
	}
	if domain.FirstOverlap(booking.Slot(), r.activeForCleanerLocked(booking.CleanerID, booking.ScheduledDate)) != nil {
		return repository.ErrSlotTaken
	}

	r.bookings[booking.ID] = clone(booking)
	return nil
}

// FindByID retrieves a booking by ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(b), nil
}

// FindByParty returns one page of a party's bookings, newest first.
func (r *BookingRepository) FindByParty(ctx context.Context, q repository.PartyQuery) ([]*domain.Booking, int, error) {
	r.mu.RLock()
	var matched []*domain.Booking
	for _, b := range r.bookings {
		if q.Role == domain.RoleCustomer && b.CustomerID != q.PartyID {
			continue
		}
		if q.Role == domain.RoleCleaner && b.CleanerID != q.PartyID {
			continue
		}
		if q.Status != nil && b.Status != *q.Status {
			continue
		}
		matched = append(matched, clone(b))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if q.Skip >= total {
		return []*domain.Booking{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Skip+q.Limit < total {
		end = q.Skip + q.Limit
	}
	return matched[q.Skip:end], total, nil
}

// FindActiveForCleaner returns the cleaner's active bookings on the date.
func (r *BookingRepository) FindActiveForCleaner(ctx context.Context, cleanerID string, date domain.Date) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := r.activeForCleanerLocked(cleanerID, date)
	out := make([]*domain.Booking, 0, len(active))
	for _, b := range active {
		out = append(out, clone(b))
	}
	return out, nil
}

// UpdateStatus applies the change if the stored version matches.
func (r *BookingRepository) UpdateStatus(ctx context.Context, change repository.StatusChange) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[change.BookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.Version != change.ExpectedVersion {
		return nil, repository.ErrStaleVersion
	}

	b.Status = change.Status
	if change.Status == domain.BookingStatusCancelled {
		b.CancelledBy = change.CancelledBy
		b.CancellationReason = change.CancellationReason
	}
	b.UpdatedAt = change.UpdatedAt
	b.Version++

	return clone(b), nil
}

// UpdatePaymentStatus records the payment state.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.PaymentStatus = status
	b.Version++

	return clone(b), nil
}

// Count returns the number of stored bookings.
func (r *BookingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

func (r *BookingRepository) activeForCleanerLocked(cleanerID string, date domain.Date) []*domain.Booking {
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.CleanerID == cleanerID && b.ScheduledDate == date && b.Status.IsActive() {
			out = append(out, b)
		}
	}
	return out
}

// clone returns a copy so callers cannot mutate stored state.
func clone(b *domain.Booking) *domain.Booking {
	c := *b
	if b.Address.Latitude != nil {
		lat := *b.Address.Latitude
		c.Address.Latitude = &lat
	}
	if b.Address.Longitude != nil {
		lng := *b.Address.Longitude
		c.Address.Longitude = &lng
	}
	return &c
}
