package service

import (
	"context"

	"go.uber.org/zap"

	"homeclean/internal/domain"
	"homeclean/internal/redis"
	"homeclean/internal/repository"
)

// CachedCatalog is a read-through Redis cache in front of a ServiceCatalog.
// Cache failures are logged and fall through to the source.
type CachedCatalog struct {
	source repository.ServiceCatalog
	cache  redis.CacheStoreInterface
	logger *zap.Logger
}

var _ repository.ServiceCatalog = (*CachedCatalog)(nil)

// NewCachedCatalog wraps source with cache.
func NewCachedCatalog(source repository.ServiceCatalog, cache redis.CacheStoreInterface, logger *zap.Logger) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{source: source, cache: cache, logger: logger}
}

// GetServiceByID returns the cached listing or loads and caches it.
func (c *CachedCatalog) GetServiceByID(ctx context.Context, id string) (*domain.CleaningService, error) {
	cached, err := c.cache.GetService(ctx, id)
	if err != nil {
		c.logger.Warn("service cache read failed", zap.String("service_id", id), zap.Error(err))
	}
	if cached != nil {
		return &domain.CleaningService{
			ID:            cached.ID,
			CleanerID:     cached.CleanerID,
			Name:          cached.Name,
			Price:         cached.Price,
			DurationHours: cached.DurationHours,
			IsActive:      cached.IsActive,
		}, nil
	}

	svc, err := c.source.GetServiceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetService(ctx, &redis.CachedService{
		ID:            svc.ID,
		CleanerID:     svc.CleanerID,
		Name:          svc.Name,
		Price:         svc.Price,
		DurationHours: svc.DurationHours,
		IsActive:      svc.IsActive,
	}); err != nil {
		c.logger.Warn("service cache write failed", zap.String("service_id", id), zap.Error(err))
	}

	return svc, nil
}
