package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

func bookingColumnNames() []string {
	parts := strings.Split(bookingColumns, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func bookingRow(id string, start string, hours float64, status domain.BookingStatus, version int) []driver.Value {
	st, _ := domain.ParseTimeOfDay(start)
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "customer-1", "cleaner-1", "service-1",
		time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC), int64(st), int64(int(st) + domain.DurationMinutes(hours)), hours,
		100.0, 10.0, 110.0, string(status), string(domain.PaymentStatusPending),
		"12 Long Street", "Springfield", "IL", "627001", nil, nil,
		nil, nil, nil, int64(version), now, now,
	}
}

func newTestBooking(start string, hours float64) *domain.Booking {
	st, _ := domain.ParseTimeOfDay(start)
	date, _ := domain.ParseDate("2030-01-15")
	now := time.Now().UTC()
	return &domain.Booking{
		ID:            "booking-new",
		CustomerID:    "customer-2",
		CleanerID:     "cleaner-1",
		ServiceID:     "service-1",
		ScheduledDate: date,
		StartTime:     st,
		DurationHours: hours,
		ServicePrice:  100,
		PlatformFee:   10,
		TotalPrice:    110,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Address:       domain.Address{Street: "12 Long Street", City: "Springfield", State: "IL", PostalCode: "627001"},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var (
	lockQuery   = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)
	activeQuery = `FROM bookings\s+WHERE cleaner_id = \$1 AND scheduled_date = \$2`
	insertQuery = `INSERT INTO bookings`
)

func TestAtomicInsert_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	b := newTestBooking("12:00", 1)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("booking:cleaner-1:2030-01-15").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(activeQuery).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(bookingRow("b1", "10:00", 2, domain.BookingStatusConfirmed, 1)...))
	mock.ExpectExec(insertQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AtomicInsert(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicInsert_OverlapRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	b := newTestBooking("11:00", 1)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(activeQuery).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(bookingRow("b1", "10:00", 2, domain.BookingStatusPending, 1)...))
	mock.ExpectRollback()

	err = repo.AtomicInsert(context.Background(), b)
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicInsert_ExclusionViolationMapsToSlotTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(activeQuery).WillReturnRows(sqlmock.NewRows(bookingColumnNames()))
	mock.ExpectExec(insertQuery).WillReturnError(&pq.Error{Code: codeExclusionViolation})
	mock.ExpectRollback()

	err = repo.AtomicInsert(context.Background(), newTestBooking("10:00", 2))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()))

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_ScansRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(bookingRow("b1", "10:00", 2, domain.BookingStatusConfirmed, 3)...))

	b, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-15", b.ScheduledDate.String())
	assert.Equal(t, "10:00", b.StartTime.String())
	assert.Equal(t, "12:00", b.EndTime().String())
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, 3, b.Version)
	assert.Nil(t, b.Address.Latitude)
}

func TestUpdateStatus_StaleVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	mock.ExpectQuery(`UPDATE bookings`).WillReturnRows(sqlmock.NewRows(bookingColumnNames()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.UpdateStatus(context.Background(), repository.StatusChange{
		BookingID:       "b1",
		ExpectedVersion: 1,
		Status:          domain.BookingStatusConfirmed,
		UpdatedAt:       time.Now(),
	})
	assert.ErrorIs(t, err, repository.ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_CancelRecordsActor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	now := time.Now()

	row := bookingRow("b1", "10:00", 2, domain.BookingStatusCancelled, 2)
	row[20] = "no longer needed"
	row[21] = "customer-1"

	mock.ExpectQuery(`UPDATE bookings\s+SET status = \$1, cancelled_by = \$2`).
		WithArgs("cancelled", "customer-1", "no longer needed", now, "b1", 1).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(row...))

	b, err := repo.UpdateStatus(context.Background(), repository.StatusChange{
		BookingID:          "b1",
		ExpectedVersion:    1,
		Status:             domain.BookingStatusCancelled,
		CancelledBy:        "customer-1",
		CancellationReason: "no longer needed",
		UpdatedAt:          now,
	})
	require.NoError(t, err)
	assert.Equal(t, "customer-1", b.CancelledBy)
	assert.Equal(t, "no longer needed", b.CancellationReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByParty_CountsAndPages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	status := domain.BookingStatusPending

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE cleaner_id = $1 AND status = $2`)).
		WithArgs("cleaner-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC OFFSET \$3 LIMIT \$4`).
		WithArgs("cleaner-1", "pending", 5, 2).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).
			AddRow(bookingRow("b6", "10:00", 1, status, 1)...).
			AddRow(bookingRow("b5", "12:00", 1, status, 1)...))

	page, total, err := repo.FindByParty(context.Background(), repository.PartyQuery{
		Role: domain.RoleCleaner, PartyID: "cleaner-1", Status: &status, Skip: 5, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, page, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicInsert_StoresEndMinuteForFractionalDuration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	b := newTestBooking("12:00", 1.5)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(activeQuery).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(bookingRow("b1", "10:30", 1.5, domain.BookingStatusConfirmed, 1)...))
	mock.ExpectExec(insertQuery).
		WithArgs(b.ID, b.CustomerID, b.CleanerID, b.ServiceID, b.ScheduledDate.Time(), 720, 810, 1.5,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AtomicInsert(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomicInsert_FractionalOverlapRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(activeQuery).
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(bookingRow("b1", "10:00", 1.5, domain.BookingStatusPending, 1)...))
	mock.ExpectRollback()

	err = repo.AtomicInsert(context.Background(), newTestBooking("11:15", 0.5))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_TotalIsSumOfParts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(db)
	row := bookingRow("b1", "10:00", 0.5, domain.BookingStatusPending, 1)
	row[8], row[9], row[10] = []byte("0.05"), []byte("0.01"), []byte("0.06")

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingColumnNames()).AddRow(row...))

	b, err := repo.FindByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.DurationHours)
	assert.Equal(t, "10:30", b.EndTime().String())
	assert.Equal(t, b.ServicePrice+b.PlatformFee, b.TotalPrice)
}

func TestServiceCatalog_GetServiceByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	catalog := NewServiceCatalog(db)
	columns := []string{"id", "cleaner_id", "name", "price", "duration_hours", "is_active"}

	mock.ExpectQuery(`FROM services WHERE id = \$1`).WithArgs("svc-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("svc-1", "cleaner-1", "Deep clean", []byte("95.50"), []byte("1.50"), true))
	mock.ExpectQuery(`FROM services WHERE id = \$1`).WithArgs("svc-2").
		WillReturnRows(sqlmock.NewRows(columns))

	s, err := catalog.GetServiceByID(context.Background(), "svc-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.CleaningService{ID: "svc-1", CleanerID: "cleaner-1", Name: "Deep clean", Price: 95.5, DurationHours: 1.5, IsActive: true}, s)

	_, err = catalog.GetServiceByID(context.Background(), "svc-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AppliesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
