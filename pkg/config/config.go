package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	OTEL     OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver      string
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// BookingConfig holds slot generation and reclamation settings
type BookingConfig struct {
	SlotGranularity  time.Duration
	SlotTimezone     string
	ReclaimSchedule  string
	UnpaidExpiry     time.Duration
	ReclaimBatchSize int
	ReclaimLeaseTTL  time.Duration
	AppointmentFee   int64
	Currency         string
}

// PaymentConfig holds payment gateway settings
type PaymentConfig struct {
	Gateway         string
	StripeSecretKey string
	SuccessURL      string
	CancelURL       string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	GatewayManual = "manual"
	GatewayStripe = "stripe"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("STORAGE_DRIVER", DriverPostgres),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", "slot_booking"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),

			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			SlotGranularity:  getEnvAsDuration("SLOT_GRANULARITY", 30*time.Minute),
			SlotTimezone:     getEnv("SLOT_TIMEZONE", "UTC"),
			ReclaimSchedule:  getEnv("RECLAIM_SCHEDULE", "@every 1m"),
			UnpaidExpiry:     getEnvAsDuration("UNPAID_EXPIRY", 30*time.Minute),
			ReclaimBatchSize: getEnvAsInt("RECLAIM_BATCH_SIZE", 100),
			ReclaimLeaseTTL:  getEnvAsDuration("RECLAIM_LEASE_TTL", 50*time.Second),
			AppointmentFee:   int64(getEnvAsInt("APPOINTMENT_FEE", 5000)),
			Currency:         getEnv("CURRENCY", "usd"),
		},
		Payment: PaymentConfig{
			Gateway:         getEnv("PAYMENT_GATEWAY", GatewayManual),
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			SuccessURL:      getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/payment/success"),
			CancelURL:       getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "slot-booking"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the booking core cannot run with
func (c *Config) Validate() error {
	if c.Booking.SlotGranularity <= 0 {
		return fmt.Errorf("SLOT_GRANULARITY must be positive, got %s", c.Booking.SlotGranularity)
	}
	if c.Booking.UnpaidExpiry <= 0 {
		return fmt.Errorf("UNPAID_EXPIRY must be positive, got %s", c.Booking.UnpaidExpiry)
	}
	if c.Booking.ReclaimBatchSize <= 0 {
		return fmt.Errorf("RECLAIM_BATCH_SIZE must be positive, got %d", c.Booking.ReclaimBatchSize)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	if _, err := time.LoadLocation(c.Booking.SlotTimezone); err != nil {
		return fmt.Errorf("invalid SLOT_TIMEZONE %q: %w", c.Booking.SlotTimezone, err)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Database.Driver)
	}
	switch c.Payment.Gateway {
	case GatewayManual:
	case GatewayStripe:
		if c.Payment.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required for the stripe gateway")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_GATEWAY %q", c.Payment.Gateway)
	}
	return nil
}

// SlotLocation returns the zone daily windows are interpreted in
func (c *BookingConfig) SlotLocation() *time.Location {
	loc, err := time.LoadLocation(c.SlotTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
