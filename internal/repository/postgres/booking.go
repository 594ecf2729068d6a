package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

const bookingColumns = `id, customer_id, cleaner_id, service_id, scheduled_date, start_minute, end_minute, duration_hours,
	service_price, platform_fee, total_price, status, payment_status,
	street, city, state, postal_code, latitude, longitude,
	special_instructions, cancellation_reason, cancelled_by, version, created_at, updated_at`

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	db *sql.DB
	q  Querier
}

var _ repository.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db, q: db}
}

// AtomicInsert serializes creators of the same cleaner and date with a transaction-scoped
// advisory lock, re-reads the active bookings, and inserts only when the slot is still free.
func (r *BookingRepository) AtomicInsert(ctx context.Context, booking *domain.Booking) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.insertExclusive(ctx, tx, booking); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

func (r *BookingRepository) insertExclusive(ctx context.Context, q Querier, b *domain.Booking) error {
	lockKey := fmt.Sprintf("booking:%s:%s", b.CleanerID, b.ScheduledDate)
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return fmt.Errorf("failed to lock cleaner day: %w", err)
	}

	existing, err := findActiveForCleaner(ctx, q, b.CleanerID, b.ScheduledDate)
	if err != nil {
		return err
	}
	if domain.FirstOverlap(b.Slot(), existing) != nil {
		return repository.ErrSlotTaken
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err = q.ExecContext(ctx, query,
		b.ID,
		b.CustomerID,
		b.CleanerID,
		b.ServiceID,
		b.ScheduledDate.Time(),
		int(b.StartTime),
		int(b.EndTime()),
		b.DurationHours,
		b.ServicePrice,
		b.PlatformFee,
		b.TotalPrice,
		string(b.Status),
		string(b.PaymentStatus),
		b.Address.Street,
		b.Address.City,
		b.Address.State,
		b.Address.PostalCode,
		nullFloat(b.Address.Latitude),
		nullFloat(b.Address.Longitude),
		nullString(b.SpecialInstructions),
		nullString(b.CancellationReason),
		nullString(b.CancelledBy),
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)

	return translateError(err)
}

// FindByID retrieves a booking by ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// FindByParty returns one page of a party's bookings, newest first, with the total match count.
func (r *BookingRepository) FindByParty(ctx context.Context, filter repository.PartyQuery) ([]*domain.Booking, int, error) {
	column := "customer_id"
	if filter.Role == domain.RoleCleaner {
		column = "cleaner_id"
	}

	where := column + ` = $1`
	args := []any{filter.PartyID}
	if filter.Status != nil {
		where += ` AND status = $2`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE %s ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d`,
		bookingColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Skip, filter.Limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0, filter.Limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// FindActiveForCleaner returns the cleaner's active bookings on a date.
func (r *BookingRepository) FindActiveForCleaner(ctx context.Context, cleanerID string, date domain.Date) ([]*domain.Booking, error) {
	return findActiveForCleaner(ctx, r.q, cleanerID, date)
}

func findActiveForCleaner(ctx context.Context, q Querier, cleanerID string, date domain.Date) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE cleaner_id = $1 AND scheduled_date = $2 AND status IN ('pending', 'confirmed', 'in_progress')
		ORDER BY start_minute
	`

	rows, err := q.QueryContext(ctx, query, cleanerID, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateStatus applies the change only while the stored version matches.
func (r *BookingRepository) UpdateStatus(ctx context.Context, change repository.StatusChange) (*domain.Booking, error) {
	var row *sql.Row
	if change.Status == domain.BookingStatusCancelled {
		query := `
			UPDATE bookings
			SET status = $1, cancelled_by = $2, cancellation_reason = $3, updated_at = $4, version = version + 1
			WHERE id = $5 AND version = $6
			RETURNING ` + bookingColumns
		row = r.q.QueryRowContext(ctx, query,
			string(change.Status),
			nullString(change.CancelledBy),
			nullString(change.CancellationReason),
			change.UpdatedAt,
			change.BookingID,
			change.ExpectedVersion,
		)
	} else {
		query := `
			UPDATE bookings
			SET status = $1, updated_at = $2, version = version + 1
			WHERE id = $3 AND version = $4
			RETURNING ` + bookingColumns
		row = r.q.QueryRowContext(ctx, query,
			string(change.Status),
			change.UpdatedAt,
			change.BookingID,
			change.ExpectedVersion,
		)
	}

	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translateError(err)
	}

	// No row matched: either the booking is gone or someone else bumped the version.
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, change.BookingID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStaleVersion
}

// UpdatePaymentStatus records the gateway's settlement state.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET payment_status = $1, updated_at = $2, version = version + 1
		WHERE id = $3
		RETURNING ` + bookingColumns

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, string(status), time.Now().UTC(), id))
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var scheduledDate time.Time
	var startMinute, endMinute int
	var status, paymentStatus string
	var latitude, longitude sql.NullFloat64
	var specialInstructions, cancellationReason, cancelledBy sql.NullString

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.CleanerID,
		&b.ServiceID,
		&scheduledDate,
		&startMinute,
		&endMinute,
		&b.DurationHours,
		&b.ServicePrice,
		&b.PlatformFee,
		&b.TotalPrice,
		&status,
		&paymentStatus,
		&b.Address.Street,
		&b.Address.City,
		&b.Address.State,
		&b.Address.PostalCode,
		&latitude,
		&longitude,
		&specialInstructions,
		&cancellationReason,
		&cancelledBy,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ScheduledDate = domain.DateOf(scheduledDate)
	b.StartTime = domain.TimeOfDay(startMinute)
	// NUMERIC(10,2) hands back the rounded total; the float sum of its parts is authoritative.
	b.TotalPrice = b.ServicePrice + b.PlatformFee
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if latitude.Valid {
		b.Address.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		b.Address.Longitude = &longitude.Float64
	}
	if specialInstructions.Valid {
		b.SpecialInstructions = specialInstructions.String
	}
	if cancellationReason.Valid {
		b.CancellationReason = cancellationReason.String
	}
	if cancelledBy.Valid {
		b.CancelledBy = cancelledBy.String
	}

	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
