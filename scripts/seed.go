package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/slotbooking/internal/adapters/database"
	"github.com/zatekoja/slotbooking/internal/application/services"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	"github.com/zatekoja/slotbooking/pkg/config"
)

// seed fills a development database with a week of slots and a few providers
// bound to them. SEED_PROVIDERS overrides the provider count.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("slotbooking-seed", cfg.App.Env, cfg.App.LogLevel)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				payment_intents,
				availability_bindings,
				bookings,
				time_slots
			CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	store := database.NewStore(pgClient)
	slotService := services.NewSlotService(store, cfg.Booking.SlotGranularity, cfg.Booking.SlotLocation(), nil)
	availability := services.NewAvailabilityService(store)

	// 1. Seed slots for the coming week, 09:00-17:00 in the slot timezone
	start := time.Now().In(cfg.Booking.SlotLocation()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 6)
	result, err := slotService.GenerateSlots(ctx, services.GenerateSlotsRequest{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		StartTime: "09:00",
		EndTime:   "17:00",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate slots")
	}
	log.Info().Int("created", len(result.Created)).Int("skipped", result.Skipped).Msg("slots seeded")

	// 2. Bind each provider to every other slot, offset per provider
	providerCount := 3
	if n, err := strconv.Atoi(os.Getenv("SEED_PROVIDERS")); err == nil && n > 0 {
		providerCount = n
	}
	for i := 0; i < providerCount; i++ {
		providerID := uuid.NewString()
		var slotIDs []string
		for j := i % 2; j < len(result.Created); j += 2 {
			slotIDs = append(slotIDs, result.Created[j].ID)
		}
		if len(slotIDs) == 0 {
			continue
		}

		bound, err := availability.Bind(ctx, providerID, slotIDs)
		if err != nil {
			log.Error().Err(err).Str("provider_id", providerID).Msg("failed to bind provider")
			continue
		}
		log.Info().Str("provider_id", providerID).Int("bound", bound.Created).Msg("provider seeded")
	}

	log.Info().Msg("seeding completed")
}
