package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/slotbooking/internal/adapters/database"
	"github.com/zatekoja/slotbooking/internal/adapters/events"
	"github.com/zatekoja/slotbooking/internal/adapters/lease"
	"github.com/zatekoja/slotbooking/internal/adapters/memory"
	"github.com/zatekoja/slotbooking/internal/adapters/payments"
	"github.com/zatekoja/slotbooking/internal/adapters/pricing"
	"github.com/zatekoja/slotbooking/internal/api/handlers"
	"github.com/zatekoja/slotbooking/internal/api/routes"
	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/redis"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	"github.com/zatekoja/slotbooking/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Storage
	var store repositories.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
		log.Warn().Msg("using in-memory storage; data is lost on restart")
	default:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if cfg.Database.AutoMigrate {
			if err := pgClient.Migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to apply migrations")
			}
		}
		store = database.NewStore(pgClient)
		log.Info().Str("host", cfg.Database.Host).Msg("PostgreSQL store initialized")
	}

	// Event bus and reclaimer lease. Without Redis both stay in process, which
	// is only correct for a single replica.
	var (
		eventBus providers.EventBus
		leases   providers.LeaseProvider
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Redis client, falling back to in-process events")
		} else {
			defer redisClient.Close()
			eventBus = events.NewRedisEventBus(redisClient)
			leases = lease.NewRedisLeaseProvider(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis event bus initialized")
		}
	}
	if eventBus == nil {
		eventBus = events.NewLocalEventBus()
		leases = lease.NewLocalLeaseProvider()
	}

	// Payment gateway
	var gateway providers.PaymentGateway
	switch cfg.Payment.Gateway {
	case config.GatewayStripe:
		gateway = payments.NewStripeGateway(&cfg.Payment)
	default:
		gateway = payments.NewManualGateway(&cfg.Payment)
	}
	log.Info().Str("gateway", cfg.Payment.Gateway).Msg("payment gateway selected")

	fees := pricing.NewStaticFeeSchedule(&cfg.Booking, nil)

	// Services
	slotService := services.NewSlotService(store, cfg.Booking.SlotGranularity, cfg.Booking.SlotLocation(), metrics)
	availabilityService := services.NewAvailabilityService(store)
	bookingService := services.NewBookingService(store, fees, eventBus, metrics)
	statusService := services.NewStatusService(store, eventBus)
	paymentService := services.NewPaymentService(store, gateway, eventBus, metrics)
	reclaimer := services.NewReclaimer(store, leases, eventBus, metrics, services.ReclaimerConfig{
		Schedule:     cfg.Booking.ReclaimSchedule,
		UnpaidExpiry: cfg.Booking.UnpaidExpiry,
		BatchSize:    cfg.Booking.ReclaimBatchSize,
		LeaseTTL:     cfg.Booking.ReclaimLeaseTTL,
	})

	if err := reclaimer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reclaimer")
	}

	// Set up router
	router := routes.NewRouter(routes.Handlers{
		Slots:        handlers.NewSlotHandler(slotService),
		Availability: handlers.NewAvailabilityHandler(availabilityService),
		Bookings:     handlers.NewBookingHandler(bookingService, statusService),
		Payments:     handlers.NewPaymentHandler(paymentService),
		Reclaim:      handlers.NewReclaimHandler(reclaimer),
		Events:       handlers.NewSSEHandler(eventBus),
	}, cfg.Server.AllowedOrigins, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: provider event streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := reclaimer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error stopping reclaimer")
	}

	// Closing the bus ends open event streams so Shutdown can drain them
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
