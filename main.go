package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"go-vigia/analytics"
	"go-vigia/cronjobs"
	"go-vigia/db"
	"go-vigia/db/memory"
	"go-vigia/geocode"
	"go-vigia/handlers"
	"go-vigia/incidents"
	"go-vigia/proximity"
	"go-vigia/routes"
	"go-vigia/summarize"
	"go-vigia/validation"
)

// store is everything the services need from a backing store. Both the
// Firestore store and the in-memory fallback satisfy it.
type store interface {
	incidents.Store
	validation.Store
	proximity.Store
	analytics.Store
	handlers.ReportStore
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("no .env file found, using system environment variables")
	}

	var st store
	if os.Getenv("FIREBASE_CREDENTIALS") != "" {
		client, err := db.InitFirestore(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Firestore")
		}
		fsStore := db.NewStore(client, logger)
		defer fsStore.Close()

		if err := fsStore.LoadSpatialIndex(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to load spatial index")
		}
		st = fsStore
	} else {
		logger.Warn().Msg("FIREBASE_CREDENTIALS not set, using in-memory store")
		st = memory.NewStore(logger)
	}

	var locator incidents.Locator
	if os.Getenv("MAPS_CREDENTIALS") != "" {
		resolver, err := geocode.NewResolver()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create maps client")
		}
		locator = resolver
	} else {
		logger.Warn().Msg("MAPS_CREDENTIALS not set, locality backfill disabled")
	}

	tzName := os.Getenv("REPORT_TIMEZONE")
	if tzName == "" {
		tzName = analytics.DefaultTimezone
	}
	reportingTZ, err := time.LoadLocation(tzName)
	if err != nil {
		logger.Warn().Err(err).Str("tz", tzName).Msg("unknown reporting timezone, falling back to UTC")
		reportingTZ = time.UTC
	}

	aggregator := analytics.NewAggregator(st, reportingTZ, logger)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		aggregator = aggregator.WithSummarizer(summarize.New(apiKey))
	}

	deps := routes.Deps{
		Incidents:  incidents.NewService(st, locator, logger),
		Engine:     validation.NewEngine(st, logger),
		Proximity:  proximity.NewService(st, logger),
		Aggregator: aggregator,
		Reports:    st,
	}

	cronjobs.InitCronJobs(aggregator, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := routes.SetupRouter(deps)
	logger.Info().Str("port", port).Str("tz", reportingTZ.String()).Msg("starting server")
	if err := r.Run(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
