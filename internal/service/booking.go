package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"homeclean/internal/domain"
	"homeclean/internal/redis"
	"homeclean/internal/repository"
)

const (
	defaultPageLimit         = 20
	maxPageLimit             = 100
	maxSpecialInstructions   = 500
	defaultStatusAttempts    = 3
	defaultCleanerDayLockTTL = 10 * time.Second
	defaultCleanerDayWait    = 2 * time.Second
)

// BookingOptions tunes the orchestrator's concurrency behaviour.
type BookingOptions struct {
	// LockTTL is how long the per-cleaner-day Redis lock may be held.
	LockTTL time.Duration
	// LockWait is how long a creator waits for the lock before going ahead without it.
	LockWait time.Duration
	// StatusUpdateAttempts bounds reload-and-reauthorize rounds after a lost compare-and-swap.
	StatusUpdateAttempts int
	Retry                RetryPolicy
}

// BookingService orchestrates booking creation, listing and status changes.
type BookingService struct {
	bookings     repository.BookingRepository
	catalog      repository.ServiceCatalog
	availability *AvailabilityChecker
	pricing      *PricingCalculator
	lockStore    redis.LockStoreInterface
	logger       *zap.Logger
	opts         BookingOptions
	now          func() time.Time
}

// NewBookingService creates a new BookingService. lockStore may be nil, in which
// case creators rely solely on the repository's atomic insert.
func NewBookingService(
	bookings repository.BookingRepository,
	catalog repository.ServiceCatalog,
	pricing *PricingCalculator,
	lockStore redis.LockStoreInterface,
	logger *zap.Logger,
	opts BookingOptions,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pricing == nil {
		pricing = NewPricingCalculator(DefaultPlatformFeeRate)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultCleanerDayLockTTL
	}
	if opts.LockWait <= 0 {
		opts.LockWait = defaultCleanerDayWait
	}
	if opts.StatusUpdateAttempts <= 0 {
		opts.StatusUpdateAttempts = defaultStatusAttempts
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	return &BookingService{
		bookings:     bookings,
		catalog:      catalog,
		availability: NewAvailabilityChecker(bookings),
		pricing:      pricing,
		lockStore:    lockStore,
		logger:       logger,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	Actor               domain.Actor
	ServiceID           string
	CleanerID           string
	ScheduledDate       domain.Date
	StartTime           domain.TimeOfDay
	Address             domain.Address
	SpecialInstructions string
}

// CreateBooking reserves the cleaner's slot and returns the pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("BookingService/CreateBooking").End()

	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	svc, err := s.catalog.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if svc.CleanerID != req.CleanerID {
		return nil, ErrServiceNotOwnedByCleaner
	}
	if !svc.IsActive {
		return nil, ErrServiceInactive
	}

	if _, err := domain.NewSlot(req.StartTime, svc.DurationHours); err != nil {
		return nil, err
	}

	available, err := s.availability.IsAvailable(ctx, req.CleanerID, req.ScheduledDate, req.StartTime, svc.DurationHours)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrSlotUnavailable
	}

	platformFee, total := s.pricing.Price(svc.Price)
	now := s.now()
	booking := &domain.Booking{
		ID:                  uuid.New().String(),
		CustomerID:          req.Actor.UserID,
		CleanerID:           req.CleanerID,
		ServiceID:           req.ServiceID,
		ScheduledDate:       req.ScheduledDate,
		StartTime:           req.StartTime,
		DurationHours:       svc.DurationHours,
		ServicePrice:        svc.Price,
		PlatformFee:         platformFee,
		TotalPrice:          total,
		Status:              domain.BookingStatusPending,
		PaymentStatus:       domain.PaymentStatusPending,
		Address:             req.Address,
		SpecialInstructions: req.SpecialInstructions,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	release := s.lockCleanerDay(ctx, req.CleanerID, req.ScheduledDate)
	defer release()

	if err := s.insert(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.logger.Info("booking slot taken at commit",
				zap.String("cleaner_id", req.CleanerID),
				zap.String("date", req.ScheduledDate.String()),
				zap.String("start_time", req.StartTime.String()),
			)
			return nil, ErrSlotUnavailable
		}
		s.logger.Error("failed to persist booking", zap.String("booking_id", booking.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("customer_id", booking.CustomerID),
		zap.String("cleaner_id", booking.CleanerID),
		zap.String("date", booking.ScheduledDate.String()),
		zap.String("start_time", booking.StartTime.String()),
		zap.Float64("total_price", booking.TotalPrice),
	)

	return booking, nil
}

// insert retries transient storage failures. A retry first checks whether the previous
// attempt committed despite reporting an error, so a booking is never inserted twice.
func (s *BookingService) insert(ctx context.Context, booking *domain.Booking) error {
	defer newrelic.FromContext(ctx).StartSegment("BookingService/AtomicInsert").End()

	attempt := 0
	return withRetry(ctx, s.opts.Retry, func() error {
		attempt++
		if attempt > 1 {
			if _, err := s.bookings.FindByID(ctx, booking.ID); err == nil {
				return nil
			}
		}
		return s.bookings.AtomicInsert(ctx, booking)
	})
}

// lockCleanerDay takes the advisory Redis lock for the cleaner's day. Lock failures
// never block creation; the repository's atomic insert remains the guarantee.
func (s *BookingService) lockCleanerDay(ctx context.Context, cleanerID string, date domain.Date) func() {
	noop := func() {}
	if s.lockStore == nil {
		return noop
	}

	token := uuid.New().String()
	day := date.String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = s.opts.LockWait

	errBusy := errors.New("cleaner day locked")
	err := backoff.Retry(func() error {
		ok, err := s.lockStore.AcquireCleanerDayLock(ctx, cleanerID, day, token, s.opts.LockTTL)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errBusy
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		s.logger.Warn("proceeding without cleaner day lock",
			zap.String("cleaner_id", cleanerID),
			zap.String("date", day),
			zap.Error(err),
		)
		return noop
	}

	return func() {
		if err := s.lockStore.ReleaseCleanerDayLock(context.WithoutCancel(ctx), cleanerID, day, token); err != nil {
			s.logger.Warn("failed to release cleaner day lock", zap.String("cleaner_id", cleanerID), zap.Error(err))
		}
	}
}

func (s *BookingService) validateCreateRequest(req CreateBookingRequest) error {
	if req.Actor.Role != domain.RoleCustomer {
		return ErrCustomerOnly
	}
	if req.Actor.UserID == "" || req.ServiceID == "" || req.CleanerID == "" {
		return fmt.Errorf("%w: customer, service and cleaner are required", ErrInvalidRequest)
	}
	if req.ScheduledDate.IsZero() {
		return domain.ErrInvalidDate
	}
	if req.StartTime < 0 || req.StartTime >= domain.MinutesPerDay {
		return domain.ErrInvalidTimeOfDay
	}
	if req.ScheduledDate.Before(domain.DateOf(s.now())) {
		return ErrDateInPast
	}
	if err := validateAddress(req.Address); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.SpecialInstructions) > maxSpecialInstructions {
		return ErrInstructionsTooLong
	}
	return nil
}

func validateAddress(a domain.Address) error {
	if n := utf8.RuneCountInString(a.Street); n < 5 || n > 100 {
		return fmt.Errorf("%w: street must be 5-100 characters", ErrInvalidAddress)
	}
	if n := utf8.RuneCountInString(a.City); n < 2 || n > 50 {
		return fmt.Errorf("%w: city must be 2-50 characters", ErrInvalidAddress)
	}
	if n := utf8.RuneCountInString(a.State); n < 2 || n > 50 {
		return fmt.Errorf("%w: state must be 2-50 characters", ErrInvalidAddress)
	}
	if n := utf8.RuneCountInString(a.PostalCode); n < 3 || n > 10 {
		return fmt.Errorf("%w: postal code must be 3-10 characters", ErrInvalidAddress)
	}
	if a.Latitude != nil && (*a.Latitude < -90 || *a.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidAddress)
	}
	if a.Longitude != nil && (*a.Longitude < -180 || *a.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidAddress)
	}
	return nil
}

// Pagination selects a window of a result list.
type Pagination struct {
	Skip  int
	Limit int
}

// BookingPage is one page of a party's bookings.
type BookingPage struct {
	Bookings []*domain.Booking
	Skip     int
	Limit    int
	Total    int
	HasMore  bool
}

// GetBookingsForParty lists the actor's bookings as customer or cleaner, newest first.
func (s *BookingService) GetBookingsForParty(ctx context.Context, actor domain.Actor, page Pagination, status *domain.BookingStatus) (*BookingPage, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if actor.Role != domain.RoleCustomer && actor.Role != domain.RoleCleaner {
		return nil, domain.ErrUnknownRole
	}
	if page.Limit == 0 {
		page.Limit = defaultPageLimit
	}
	if page.Skip < 0 || page.Limit < 1 || page.Limit > maxPageLimit {
		return nil, ErrInvalidPagination
	}

	var (
		bookings []*domain.Booking
		total    int
	)
	err := withRetry(ctx, s.opts.Retry, func() error {
		var err error
		bookings, total, err = s.bookings.FindByParty(ctx, repository.PartyQuery{
			Role:    actor.Role,
			PartyID: actor.UserID,
			Status:  status,
			Skip:    page.Skip,
			Limit:   page.Limit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &BookingPage{
		Bookings: bookings,
		Skip:     page.Skip,
		Limit:    page.Limit,
		Total:    total,
		HasMore:  page.Skip+len(bookings) < total,
	}, nil
}

// GetBooking returns a booking visible to one of its parties.
func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(actor) {
		return nil, ErrNotBookingParty
	}
	return booking, nil
}

// UpdateStatusRequest contains the parameters for a status change.
type UpdateStatusRequest struct {
	BookingID string
	Actor     domain.Actor
	Status    domain.BookingStatus
	Reason    string
}

// UpdateStatus authorizes and applies a status change. When a concurrent writer wins the
// compare-and-swap, the booking is reloaded and the change re-authorized against its new state.
func (s *BookingService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*domain.Booking, error) {
	defer newrelic.FromContext(ctx).StartSegment("BookingService/UpdateStatus").End()

	if req.BookingID == "" {
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidRequest)
	}

	for attempt := 1; attempt <= s.opts.StatusUpdateAttempts; attempt++ {
		booking, err := s.findBooking(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}

		if err := AuthorizeTransition(booking, req.Actor, req.Status); err != nil {
			return nil, err
		}

		change := repository.StatusChange{
			BookingID:       booking.ID,
			ExpectedVersion: booking.Version,
			Status:          req.Status,
			UpdatedAt:       s.now(),
		}
		if req.Status == domain.BookingStatusCancelled {
			change.CancelledBy = req.Actor.UserID
			change.CancellationReason = req.Reason
		}

		updated, err := s.applyStatusChange(ctx, change)
		if err == nil {
			s.logger.Info("booking status changed",
				zap.String("booking_id", updated.ID),
				zap.String("from", string(booking.Status)),
				zap.String("to", string(updated.Status)),
				zap.String("actor_id", req.Actor.UserID),
				zap.String("actor_role", string(req.Actor.Role)),
			)
			return updated, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		if !errors.Is(err, repository.ErrStaleVersion) {
			s.logger.Error("failed to update booking status", zap.String("booking_id", booking.ID), zap.Error(err))
			return nil, err
		}

		s.logger.Debug("status update lost compare-and-swap, reloading",
			zap.String("booking_id", booking.ID),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Warn("status update gave up after concurrent modifications", zap.String("booking_id", req.BookingID))
	return nil, ErrConcurrentUpdate
}

// applyStatusChange retries transient failures. If an earlier attempt committed but its
// reply was lost, the next attempt sees a stale version; that case is recognised and
// reported as success.
func (s *BookingService) applyStatusChange(ctx context.Context, change repository.StatusChange) (*domain.Booking, error) {
	var (
		updated      *domain.Booking
		sawTransient bool
	)
	err := withRetry(ctx, s.opts.Retry, func() error {
		var err error
		updated, err = s.bookings.UpdateStatus(ctx, change)
		if errors.Is(err, repository.ErrStaleVersion) && sawTransient {
			current, ferr := s.bookings.FindByID(ctx, change.BookingID)
			if ferr == nil && current.Status == change.Status && current.Version == change.ExpectedVersion+1 {
				updated = current
				return nil
			}
		}
		if isTransient(err) {
			sawTransient = true
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdatePaymentStatus records the payment gateway's outcome for a booking.
func (s *BookingService) UpdatePaymentStatus(ctx context.Context, bookingID string, status domain.PaymentStatus) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidRequest)
	}

	var updated *domain.Booking
	err := withRetry(ctx, s.opts.Retry, func() error {
		var err error
		updated, err = s.bookings.UpdatePaymentStatus(ctx, bookingID, status)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	s.logger.Info("booking payment status changed",
		zap.String("booking_id", bookingID),
		zap.String("payment_status", string(status)),
	)
	return updated, nil
}

func (s *BookingService) findBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var booking *domain.Booking
	err := withRetry(ctx, s.opts.Retry, func() error {
		var err error
		booking, err = s.bookings.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}
