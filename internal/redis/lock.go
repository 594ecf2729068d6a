package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds the caller's token, so an
// expired lock taken over by another instance is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func cleanerDayLockKey(cleanerID, date string) string {
	return fmt.Sprintf("lock:cleaner:%s:%s", cleanerID, date)
}

// AcquireCleanerDayLock attempts to take the booking lock for one cleaner on one date.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireCleanerDayLock(ctx context.Context, cleanerID, date, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, cleanerDayLockKey(cleanerID, date), token, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseCleanerDayLock releases the lock if token still owns it.
func (s *LockStore) ReleaseCleanerDayLock(ctx context.Context, cleanerID, date, token string) error {
	return releaseScript.Run(ctx, s.client, []string{cleanerDayLockKey(cleanerID, date)}, token).Err()
}
