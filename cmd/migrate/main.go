package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/slotbooking/internal/infrastructure/observability"
	"github.com/zatekoja/slotbooking/pkg/config"
)

// migrate applies the embedded schema to the configured PostgreSQL database
func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "maximum time to spend applying migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("slotbooking-migrate", cfg.App.Env, cfg.App.LogLevel)

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("migrations only apply to the postgres driver")
	}

	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Str("database", cfg.Database.Database).Msg("migrations applied")
}
