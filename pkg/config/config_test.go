package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Booking.SlotGranularity)
	assert.Equal(t, 30*time.Minute, cfg.Booking.UnpaidExpiry)
	assert.Equal(t, "@every 1m", cfg.Booking.ReclaimSchedule)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, GatewayManual, cfg.Payment.Gateway)
	assert.Equal(t, time.UTC, cfg.Booking.SlotLocation())
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoad_BookingOverrides(t *testing.T) {
	t.Setenv("SLOT_GRANULARITY", "15m")
	t.Setenv("UNPAID_EXPIRY", "45m")
	t.Setenv("RECLAIM_SCHEDULE", "@every 30s")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SLOT_TIMEZONE", "Asia/Dhaka")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Booking.SlotGranularity)
	assert.Equal(t, 45*time.Minute, cfg.Booking.UnpaidExpiry)
	assert.Equal(t, "@every 30s", cfg.Booking.ReclaimSchedule)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "Asia/Dhaka", cfg.Booking.SlotLocation().String())
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero granularity", map[string]string{"SLOT_GRANULARITY": "0s"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"stripe without key", map[string]string{"PAYMENT_GATEWAY": "stripe"}},
		{"bad timezone", map[string]string{"SLOT_TIMEZONE": "Mars/Olympus"}},
		{"empty pool", map[string]string{"DB_MAX_OPEN_CONNS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "slots", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=slots sslmode=disable", cfg.DatabaseDSN())
}
