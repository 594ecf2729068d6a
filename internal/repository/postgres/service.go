package postgres

import (
	"context"
	"database/sql"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// ServiceCatalog reads cleaners' service listings from the services table.
type ServiceCatalog struct {
	q Querier
}

var _ repository.ServiceCatalog = (*ServiceCatalog)(nil)

// NewServiceCatalog creates a new PostgreSQL service catalog.
func NewServiceCatalog(db *sql.DB) *ServiceCatalog {
	return &ServiceCatalog{q: db}
}

// GetServiceByID retrieves a listing by ID.
func (c *ServiceCatalog) GetServiceByID(ctx context.Context, id string) (*domain.CleaningService, error) {
	query := `SELECT id, cleaner_id, name, price, duration_hours, is_active FROM services WHERE id = $1`

	var s domain.CleaningService
	err := c.q.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.CleanerID,
		&s.Name,
		&s.Price,
		&s.DurationHours,
		&s.IsActive,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}
