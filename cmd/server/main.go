package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"homeclean/internal/app"
	"homeclean/internal/config"
	"homeclean/internal/domain"
	"homeclean/internal/handler"
	internalRedis "homeclean/internal/redis"
	"homeclean/internal/repository"
	"homeclean/internal/repository/memory"
	"homeclean/internal/repository/mongodb"
	"homeclean/internal/repository/postgres"
	"homeclean/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	stores, closeStores, err := openStores(ctx, cfg, nrApp, logger)
	if err != nil {
		logger.Fatal("failed to open booking store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStores()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	server := wireServer(stores, redisClient, nrApp, cfg, logger)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	logger.Info("server exited")
}

// bookingStores are the storage backends selected by STORE_DRIVER.
type bookingStores struct {
	bookings repository.BookingRepository
	catalog  repository.ServiceCatalog
}

func openStores(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, logger *zap.Logger) (bookingStores, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return bookingStores{}, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return bookingStores{}, nil, err
		}
		logger.Info("connected to PostgreSQL", zap.String("db", cfg.Database.DBName))
		return bookingStores{
			bookings: postgres.NewBookingRepository(db),
			catalog:  postgres.NewServiceCatalog(db),
		}, func() { _ = db.Close() }, nil

	case config.StoreMongo:
		client, err := app.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return bookingStores{}, nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		bookings := mongodb.NewBookingRepository(db)
		if err := bookings.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return bookingStores{}, nil, err
		}
		logger.Info("connected to MongoDB", zap.String("db", cfg.Mongo.Database))
		return bookingStores{
			bookings: bookings,
			catalog:  mongodb.NewServiceCatalog(db),
		}, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.StoreMemory:
		catalog := memory.NewServiceCatalog()
		for _, s := range cfg.SeedServices {
			catalog.Put(&domain.CleaningService{
				ID:            s.ID,
				CleanerID:     s.CleanerID,
				Name:          s.Name,
				Price:         s.Price,
				DurationHours: s.DurationHours,
				IsActive:      s.IsActive,
			})
		}
		logger.Warn("using in-memory booking store; data is lost on restart", zap.Int("seeded_services", len(cfg.SeedServices)))
		return bookingStores{
			bookings: memory.NewBookingRepository(),
			catalog:  catalog,
		}, func() {}, nil
	}

	return bookingStores{}, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(stores bookingStores, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *zap.Logger) *http.Server {
	catalog := stores.catalog
	var lockStore internalRedis.LockStoreInterface
	if redisClient != nil {
		lockStore = internalRedis.NewLockStore(redisClient)
		catalog = service.NewCachedCatalog(catalog, internalRedis.NewCacheStore(redisClient), logger)
	}

	retry := service.DefaultRetryPolicy
	retry.MaxAttempts = cfg.Booking.RetryAttempts

	pricing := service.NewPricingCalculator(cfg.Booking.PlatformFeeRate)
	logger.Info("booking service configured",
		zap.Float64("platform_fee_rate", pricing.FeeRate()),
		zap.Bool("cleaner_day_lock", lockStore != nil),
		zap.Int("retry_attempts", retry.MaxAttempts),
	)

	bookingService := service.NewBookingService(
		stores.bookings,
		catalog,
		pricing,
		lockStore,
		logger.Named("booking"),
		service.BookingOptions{
			LockTTL:              cfg.Booking.LockTTL,
			LockWait:             cfg.Booking.LockWait,
			StatusUpdateAttempts: cfg.Booking.StatusUpdateAttempts,
			Retry:                retry,
		},
	)

	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookingService, logger.Named("http")),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         logger,
		Auth:           cfg.Auth,
		RateLimit:      cfg.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
