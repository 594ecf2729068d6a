package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// ServiceCacheTTL bounds how long a price or ownership change can go unnoticed.
const ServiceCacheTTL = 30 * time.Second

const serviceCachePrefix = "cache:service:"

// CachedService represents a cached service listing.
type CachedService struct {
	ID            string  `json:"id"`
	CleanerID     string  `json:"cleaner_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	DurationHours float64 `json:"duration_hours"`
	IsActive      bool    `json:"is_active"`
}

// GetService retrieves a service listing from cache. A miss returns nil, nil.
func (s *CacheStore) GetService(ctx context.Context, serviceID string) (*CachedService, error) {
	data, err := s.client.Get(ctx, serviceCachePrefix+serviceID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var svc CachedService
	if err := json.Unmarshal(data, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// SetService stores a service listing in cache.
func (s *CacheStore) SetService(ctx context.Context, svc *CachedService) error {
	data, err := json.Marshal(svc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, serviceCachePrefix+svc.ID, data, ServiceCacheTTL).Err()
}
