package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	replayedHeader    = "Idempotent-Replayed"

	// inFlightMarker holds the key while the first request with it is still running.
	inFlightMarker = "in-flight"
	inFlightTTL    = time.Minute
)

var errRequestInFlight = errors.New("a request with this idempotency key is still in progress")

// storedResponse is what a replay sends back.
type storedResponse struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// captureWriter copies everything the handler writes.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a client retries a booking mutation with the same
// Idempotency-Key. Keys are scoped to the authenticated caller and the route, so two users can never
// collide. The first request claims the key with SETNX; a duplicate arriving while it runs gets 409.
// Redis failures degrade to normal processing.
func Idempotency(client *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := idempotencyKey(c, key)

		claimed, err := client.SetNX(ctx, storeKey, inFlightMarker, inFlightTTL).Result()
		if err != nil {
			logger.Warn("idempotency claim failed", zap.String("key", storeKey), zap.Error(err))
			c.Next()
			return
		}

		if !claimed {
			stored, err := loadResponse(ctx, client, storeKey)
			switch {
			case err == nil:
				c.Header(replayedHeader, "true")
				c.Data(stored.StatusCode, stored.ContentType, stored.Body)
				c.Abort()
			case errors.Is(err, errRequestInFlight), errors.Is(err, redis.Nil):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": errRequestInFlight.Error(), "code": "conflict"})
			default:
				logger.Warn("idempotency lookup failed", zap.String("key", storeKey), zap.Error(err))
				c.Next()
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// Server errors are left retryable.
		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			if err := client.Del(context.WithoutCancel(ctx), storeKey).Err(); err != nil {
				logger.Warn("idempotency release failed", zap.String("key", storeKey), zap.Error(err))
			}
			return
		}
		resp := storedResponse{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := saveResponse(context.WithoutCancel(ctx), client, storeKey, &resp); err != nil {
			logger.Warn("idempotency store failed", zap.String("key", storeKey), zap.Error(err))
			_ = client.Del(context.WithoutCancel(ctx), storeKey).Err()
		}
	}
}

func idempotencyKey(c *gin.Context, key string) string {
	caller := "anonymous"
	if actor, ok := ActorFromContext(c); ok {
		caller = actor.UserID
	}
	return "idempotency:" + caller + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

func loadResponse(ctx context.Context, client *redis.Client, key string) (*storedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == inFlightMarker {
		return nil, errRequestInFlight
	}

	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func saveResponse(ctx context.Context, client *redis.Client, key string, resp *storedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
