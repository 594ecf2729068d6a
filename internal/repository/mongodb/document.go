// Package mongodb stores bookings and reads service listings from MongoDB.
package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

const (
	bookingsCollection    = "bookings"
	servicesCollection    = "services"
	cleanerDaysCollection = "cleaner_days"
)

type addressDocument struct {
	Street     string   `bson:"street"`
	City       string   `bson:"city"`
	State      string   `bson:"state"`
	PostalCode string   `bson:"postal_code"`
	Latitude   *float64 `bson:"latitude,omitempty"`
	Longitude  *float64 `bson:"longitude,omitempty"`
}

// bookingDocument is the stored shape of a booking. End minute is denormalized so
// overlap checks can run as a single range query.
type bookingDocument struct {
	ID                  string          `bson:"_id"`
	CustomerID          string          `bson:"customer_id"`
	CleanerID           string          `bson:"cleaner_id"`
	ServiceID           string          `bson:"service_id"`
	ScheduledDate       string          `bson:"scheduled_date"`
	StartMinute         int             `bson:"start_minute"`
	EndMinute           int             `bson:"end_minute"`
	DurationHours       float64         `bson:"duration_hours"`
	ServicePrice        float64         `bson:"service_price"`
	PlatformFee         float64         `bson:"platform_fee"`
	TotalPrice          float64         `bson:"total_price"`
	Status              string          `bson:"status"`
	PaymentStatus       string          `bson:"payment_status"`
	Address             addressDocument `bson:"address"`
	SpecialInstructions string          `bson:"special_instructions,omitempty"`
	CancellationReason  string          `bson:"cancellation_reason,omitempty"`
	CancelledBy         string          `bson:"cancelled_by,omitempty"`
	Version             int             `bson:"version"`
	CreatedAt           time.Time       `bson:"created_at"`
	UpdatedAt           time.Time       `bson:"updated_at"`
}

func toDocument(b *domain.Booking) bookingDocument {
	return bookingDocument{
		ID:            b.ID,
		CustomerID:    b.CustomerID,
		CleanerID:     b.CleanerID,
		ServiceID:     b.ServiceID,
		ScheduledDate: b.ScheduledDate.String(),
		StartMinute:   int(b.StartTime),
		EndMinute:     int(b.EndTime()),
		DurationHours: b.DurationHours,
		ServicePrice:  b.ServicePrice,
		PlatformFee:   b.PlatformFee,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Address: addressDocument{
			Street:     b.Address.Street,
			City:       b.Address.City,
			State:      b.Address.State,
			PostalCode: b.Address.PostalCode,
			Latitude:   b.Address.Latitude,
			Longitude:  b.Address.Longitude,
		},
		SpecialInstructions: b.SpecialInstructions,
		CancellationReason:  b.CancellationReason,
		CancelledBy:         b.CancelledBy,
		Version:             b.Version,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func (d bookingDocument) toDomain() (*domain.Booking, error) {
	date, err := domain.ParseDate(d.ScheduledDate)
	if err != nil {
		return nil, err
	}
	return &domain.Booking{
		ID:            d.ID,
		CustomerID:    d.CustomerID,
		CleanerID:     d.CleanerID,
		ServiceID:     d.ServiceID,
		ScheduledDate: date,
		StartTime:     domain.TimeOfDay(d.StartMinute),
		DurationHours: d.DurationHours,
		ServicePrice:  d.ServicePrice,
		PlatformFee:   d.PlatformFee,
		TotalPrice:    d.TotalPrice,
		Status:        domain.BookingStatus(d.Status),
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		Address: domain.Address{
			Street:     d.Address.Street,
			City:       d.Address.City,
			State:      d.Address.State,
			PostalCode: d.Address.PostalCode,
			Latitude:   d.Address.Latitude,
			Longitude:  d.Address.Longitude,
		},
		SpecialInstructions: d.SpecialInstructions,
		CancellationReason:  d.CancellationReason,
		CancelledBy:         d.CancelledBy,
		Version:             d.Version,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}, nil
}

func activeStatusValues() bson.A {
	values := make(bson.A, 0, len(domain.ActiveStatuses))
	for _, s := range domain.ActiveStatuses {
		values = append(values, string(s))
	}
	return values
}

// overlapFilter matches active bookings of the cleaner on the date that intersect [start, end).
func overlapFilter(cleanerID string, date domain.Date, slot domain.Slot) bson.M {
	return bson.M{
		"cleaner_id":     cleanerID,
		"scheduled_date": date.String(),
		"status":         bson.M{"$in": activeStatusValues()},
		"start_minute":   bson.M{"$lt": int(slot.End)},
		"end_minute":     bson.M{"$gt": int(slot.Start)},
	}
}

// partyFilter selects one party's bookings, optionally narrowed to a status.
func partyFilter(q repository.PartyQuery) bson.M {
	field := "customer_id"
	if q.Role == domain.RoleCleaner {
		field = "cleaner_id"
	}
	filter := bson.M{field: q.PartyID}
	if q.Status != nil {
		filter["status"] = string(*q.Status)
	}
	return filter
}

func cleanerDayKey(cleanerID string, date domain.Date) string {
	return cleanerID + "|" + date.String()
}
