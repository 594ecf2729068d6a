package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Auth      AuthConfig
	Booking   BookingConfig
	RateLimit RateLimitConfig
	Log       LogConfig

	// SeedServices preloads the in-memory service catalog (memory driver only).
	SeedServices []SeedService
}

// SeedService is a service listing declared under seed_services in config.yaml.
type SeedService struct {
	ID            string  `mapstructure:"id"`
	CleanerID     string  `mapstructure:"cleaner_id"`
	Name          string  `mapstructure:"name"`
	Price         float64 `mapstructure:"price"`
	DurationHours float64 `mapstructure:"duration_hours"`
	IsActive      bool    `mapstructure:"is_active"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StoreConfig selects the booking store.
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MongoConfig holds MongoDB configuration. Transactions need a replica set.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds the token verification secret and the internal service key.
type AuthConfig struct {
	JWTSecret   string
	InternalKey string
}

// BookingConfig tunes the booking orchestrator.
type BookingConfig struct {
	PlatformFeeRate      float64
	LockTTL              time.Duration
	LockWait             time.Duration
	RetryAttempts        int
	StatusUpdateAttempts int
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Env   string
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("STORE_DRIVER", StorePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "homeclean")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DATABASE", "homeclean")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_ENABLED", true)

	v.SetDefault("NEW_RELIC_APP_NAME", "homeclean-booking-service")
	v.SetDefault("NEW_RELIC_LICENSE_KEY", "")
	v.SetDefault("NEW_RELIC_ENABLED", false)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("INTERNAL_API_KEY", "")

	v.SetDefault("PLATFORM_FEE_RATE", 0.10)
	v.SetDefault("BOOKING_LOCK_TTL", 10*time.Second)
	v.SetDefault("BOOKING_LOCK_WAIT", 2*time.Second)
	v.SetDefault("BOOKING_RETRY_ATTEMPTS", 3)
	v.SetDefault("BOOKING_STATUS_UPDATE_ATTEMPTS", 3)

	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load loads configuration from an optional config.yaml and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Enabled:  v.GetBool("REDIS_ENABLED"),
		},
		NewRelic: NewRelicConfig{
			AppName:    v.GetString("NEW_RELIC_APP_NAME"),
			LicenseKey: v.GetString("NEW_RELIC_LICENSE_KEY"),
			Enabled:    v.GetBool("NEW_RELIC_ENABLED"),
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("JWT_SECRET"),
			InternalKey: v.GetString("INTERNAL_API_KEY"),
		},
		Booking: BookingConfig{
			PlatformFeeRate:      v.GetFloat64("PLATFORM_FEE_RATE"),
			LockTTL:              v.GetDuration("BOOKING_LOCK_TTL"),
			LockWait:             v.GetDuration("BOOKING_LOCK_WAIT"),
			RetryAttempts:        v.GetInt("BOOKING_RETRY_ATTEMPTS"),
			StatusUpdateAttempts: v.GetInt("BOOKING_STATUS_UPDATE_ATTEMPTS"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Log: LogConfig{
			Env:   v.GetString("ENV"),
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := v.UnmarshalKey("seed_services", &cfg.SeedServices); err != nil {
		return nil, fmt.Errorf("failed to decode seed_services: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Booking.PlatformFeeRate < 0 {
		return fmt.Errorf("PLATFORM_FEE_RATE must not be negative, got %v", c.Booking.PlatformFeeRate)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
