package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStore_AcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewLockStore(client)
	ctx := context.Background()
	key := "lock:cleaner:cleaner-1:2030-01-15"

	mock.ExpectSetNX(key, "token-a", 5*time.Second).SetVal(true)
	mock.ExpectSetNX(key, "token-b", 5*time.Second).SetVal(false)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "token-a").SetVal(int64(1))

	ok, err := store.AcquireCleanerDayLock(ctx, "cleaner-1", "2030-01-15", "token-a", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireCleanerDayLock(ctx, "cleaner-1", "2030-01-15", "token-b", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ReleaseCleanerDayLock(ctx, "cleaner-1", "2030-01-15", "token-a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStore_AcquireError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewLockStore(client)

	mock.ExpectSetNX("lock:cleaner:c:2030-01-15", "t", time.Second).SetErr(errors.New("connection refused"))

	ok, err := store.AcquireCleanerDayLock(context.Background(), "c", "2030-01-15", "t", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCacheStore_ServiceRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewCacheStore(client)
	ctx := context.Background()

	svc := &CachedService{ID: "svc-1", CleanerID: "cleaner-1", Price: 80, DurationHours: 1.5, IsActive: true}
	data, err := json.Marshal(svc)
	require.NoError(t, err)

	mock.ExpectGet("cache:service:svc-1").RedisNil()
	mock.ExpectSet("cache:service:svc-1", data, ServiceCacheTTL).SetVal("OK")
	mock.ExpectGet("cache:service:svc-1").SetVal(string(data))

	got, err := store.GetService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SetService(ctx, svc))

	got, err = store.GetService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, svc, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
