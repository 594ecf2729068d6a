package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homeclean/internal/domain"
)

func idempotentRouter(t *testing.T, calls *int) (*gin.Engine, redismock.ClientMock) {
	return idempotentRouterWithStatus(t, calls, http.StatusCreated)
}

func idempotentRouterWithStatus(t *testing.T, calls *int, status int) (*gin.Engine, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(actorKey, domain.Actor{UserID: "customer-1", Role: domain.RoleCustomer})
		c.Next()
	})
	r.Use(Idempotency(client, zap.NewNop()))
	r.POST("/v1/bookings", func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"id": "b1"})
	})
	return r, mock
}

func post(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const storeKey = "idempotency:customer-1:POST:/v1/bookings:abc"

func TestIdempotency_StoresFirstResponse(t *testing.T) {
	var calls int
	r, mock := idempotentRouter(t, &calls)

	mock.ExpectSetNX(storeKey, inFlightMarker, inFlightTTL).SetVal(true)
	mock.Regexp().ExpectSet(storeKey, `.*`, idempotencyTTL).SetVal("OK")

	w := post(r, "abc")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int
	r, mock := idempotentRouter(t, &calls)

	stored, err := json.Marshal(storedResponse{
		StatusCode:  http.StatusCreated,
		ContentType: "application/json; charset=utf-8",
		Body:        json.RawMessage(`{"id":"b1"}`),
	})
	require.NoError(t, err)
	mock.ExpectSetNX(storeKey, inFlightMarker, inFlightTTL).SetVal(false)
	mock.ExpectGet(storeKey).SetVal(string(stored))

	w := post(r, "abc")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(replayedHeader))
	assert.JSONEq(t, `{"id":"b1"}`, w.Body.String())
	assert.Equal(t, 0, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_RedisDownFallsThrough(t *testing.T) {
	var calls int
	r, mock := idempotentRouter(t, &calls)

	mock.ExpectSetNX(storeKey, inFlightMarker, inFlightTTL).SetErr(errors.New("connection refused"))

	w := post(r, "abc")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_DuplicateWhileInFlightConflicts(t *testing.T) {
	var calls int
	r, mock := idempotentRouter(t, &calls)

	mock.ExpectSetNX(storeKey, inFlightMarker, inFlightTTL).SetVal(false)
	mock.ExpectGet(storeKey).SetVal(inFlightMarker)

	w := post(r, "abc")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"conflict"`)
	assert.Empty(t, w.Header().Get(replayedHeader))
	assert.Equal(t, 0, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	var calls int
	r, mock := idempotentRouterWithStatus(t, &calls, http.StatusInternalServerError)

	mock.ExpectSetNX(storeKey, inFlightMarker, inFlightTTL).SetVal(true)
	mock.ExpectDel(storeKey).SetVal(1)

	w := post(r, "abc")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotency_NoKeyNoRedis(t *testing.T) {
	var calls int
	r, mock := idempotentRouter(t, &calls)

	w := post(r, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
