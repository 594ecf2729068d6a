package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// BookingRepository is a MongoDB implementation of repository.BookingRepository.
// AtomicInsert needs a replica set or sharded cluster because it runs in a transaction.
type BookingRepository struct {
	client      *mongo.Client
	bookings    *mongo.Collection
	cleanerDays *mongo.Collection
}

var _ repository.BookingRepository = (*BookingRepository)(nil)

// NewBookingRepository creates a booking repository on the given database.
func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		client:      db.Client(),
		bookings:    db.Collection(bookingsCollection),
		cleanerDays: db.Collection(cleanerDaysCollection),
	}
}

// EnsureIndexes creates the indexes the booking queries rely on.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "cleaner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "cleaner_id", Value: 1}, {Key: "scheduled_date", Value: 1}, {Key: "start_minute", Value: 1}}},
	}
	if _, err := r.bookings.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// AtomicInsert runs the overlap check and the insert in one transaction. Every creator for
// the same cleaner and date first writes the same guard document, so concurrent creators
// collide on a write conflict and the loser's retry observes the winner's booking.
func (r *BookingRepository) AtomicInsert(ctx context.Context, booking *domain.Booking) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	doc := toDocument(booking)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		_, err := r.cleanerDays.UpdateOne(sc,
			bson.M{"_id": cleanerDayKey(booking.CleanerID, booking.ScheduledDate)},
			bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"touched_at": time.Now().UTC()}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}

		n, err := r.bookings.CountDocuments(sc, overlapFilter(booking.CleanerID, booking.ScheduledDate, booking.Slot()))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, repository.ErrSlotTaken
		}

		if _, err := r.bookings.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrSlotTaken
		}
		return err
	}
	return nil
}

// FindByID retrieves a booking by ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	var doc bookingDocument
	if err := r.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// FindByParty returns one page of a party's bookings, newest first, with the total match count.
func (r *BookingRepository) FindByParty(ctx context.Context, q repository.PartyQuery) ([]*domain.Booking, int, error) {
	filter := partyFilter(q)

	total, err := r.bookings.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	bookings := make([]*domain.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toDomain()
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, int(total), nil
}

// FindActiveForCleaner returns the cleaner's active bookings on a date.
func (r *BookingRepository) FindActiveForCleaner(ctx context.Context, cleanerID string, date domain.Date) ([]*domain.Booking, error) {
	filter := bson.M{
		"cleaner_id":     cleanerID,
		"scheduled_date": date.String(),
		"status":         bson.M{"$in": activeStatusValues()},
	}
	cursor, err := r.bookings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_minute", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	bookings := make([]*domain.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// UpdateStatus applies the change only while the stored version matches.
func (r *BookingRepository) UpdateStatus(ctx context.Context, change repository.StatusChange) (*domain.Booking, error) {
	set := bson.M{
		"status":     string(change.Status),
		"updated_at": change.UpdatedAt,
	}
	if change.Status == domain.BookingStatusCancelled {
		set["cancelled_by"] = change.CancelledBy
		set["cancellation_reason"] = change.CancellationReason
	}

	filter := bson.M{"_id": change.BookingID, "version": change.ExpectedVersion}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}

	var doc bookingDocument
	err := r.bookings.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := r.bookings.CountDocuments(ctx, bson.M{"_id": change.BookingID})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStaleVersion
}

// UpdatePaymentStatus records the gateway's settlement state.
func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Booking, error) {
	update := bson.M{
		"$set": bson.M{"payment_status": string(status), "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}

	var doc bookingDocument
	err := r.bookings.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}
