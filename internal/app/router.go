package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"homeclean/internal/config"
	"homeclean/internal/handler"
	"homeclean/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	RedisClient    *redis.Client // optional; disables idempotent replay when nil
	NewRelicApp    *newrelic.Application
	Logger         *zap.Logger
	Auth           config.AuthConfig
	RateLimit      config.RateLimitConfig
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RateLimit.RequestsPerSecond > 0 {
		router.Use(middleware.NewRateLimiter(deps.RateLimit.RequestsPerSecond, deps.RateLimit.Burst, logger).Middleware())
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.Authenticate([]byte(deps.Auth.JWTSecret), logger))
		bookings.Use(middleware.Idempotency(deps.RedisClient, logger))
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.GET("", deps.BookingHandler.ListBookings)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.PATCH("/:id/status", deps.BookingHandler.UpdateStatus)
		}

		// Service-to-service routes.
		internal := v1.Group("/internal")
		internal.Use(middleware.RequireInternalKey(deps.Auth.InternalKey))
		{
			internal.PATCH("/bookings/:id/payment-status", deps.BookingHandler.UpdatePaymentStatus)
		}
	}

	return router
}
