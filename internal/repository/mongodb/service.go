package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

type serviceDocument struct {
	ID            string  `bson:"_id"`
	CleanerID     string  `bson:"cleaner_id"`
	Name          string  `bson:"name"`
	Price         float64 `bson:"price"`
	DurationHours float64 `bson:"duration_hours"`
	IsActive      bool    `bson:"is_active"`
}

// ServiceCatalog reads service listings from the services collection.
type ServiceCatalog struct {
	services *mongo.Collection
}

var _ repository.ServiceCatalog = (*ServiceCatalog)(nil)

// NewServiceCatalog creates a service catalog on the given database.
func NewServiceCatalog(db *mongo.Database) *ServiceCatalog {
	return &ServiceCatalog{services: db.Collection(servicesCollection)}
}

// GetServiceByID retrieves a listing by ID.
func (c *ServiceCatalog) GetServiceByID(ctx context.Context, id string) (*domain.CleaningService, error) {
	var doc serviceDocument
	if err := c.services.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &domain.CleaningService{
		ID:            doc.ID,
		CleanerID:     doc.CleanerID,
		Name:          doc.Name,
		Price:         doc.Price,
		DurationHours: doc.DurationHours,
		IsActive:      doc.IsActive,
	}, nil
}
