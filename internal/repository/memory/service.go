package memory

import (
	"context"
	"sync"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// ServiceCatalog is an in-memory implementation of repository.ServiceCatalog.
type ServiceCatalog struct {
	mu       sync.RWMutex
	services map[string]*domain.CleaningService
}

var _ repository.ServiceCatalog = (*ServiceCatalog)(nil)

// NewServiceCatalog creates a catalog seeded with the given listings.
func NewServiceCatalog(services ...*domain.CleaningService) *ServiceCatalog {
	c := &ServiceCatalog{services: make(map[string]*domain.CleaningService)}
	for _, s := range services {
		c.Put(s)
	}
	return c
}

// Put adds or replaces a listing.
func (c *ServiceCatalog) Put(s *domain.CleaningService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.services[s.ID] = &cp
}

// GetServiceByID retrieves a listing by ID.
func (c *ServiceCatalog) GetServiceByID(ctx context.Context, id string) (*domain.CleaningService, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}
