package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCleanerDayLock(ctx context.Context, cleanerID, date, token string, ttl time.Duration) (bool, error)
	ReleaseCleanerDayLock(ctx context.Context, cleanerID, date, token string) error
}

// CacheStoreInterface defines the interface for service listing caching.
type CacheStoreInterface interface {
	GetService(ctx context.Context, serviceID string) (*CachedService, error)
	SetService(ctx context.Context, svc *CachedService) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
