package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/config"
	"github.com/liamwears/moviestats/internal/database"
	"github.com/liamwears/moviestats/internal/models"
	"github.com/liamwears/moviestats/internal/services"
)

func connect(cfg *config.Config, logger zerolog.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{URL: cfg.Database.URL, MaxConns: 2, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runMigrations applies pending migrations, or rolls back the last one
func runMigrations(ctx context.Context, cfg *config.Config, logger zerolog.Logger, rollback bool) error {
	db, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool, logger)
	if rollback {
		return migrator.Down(ctx)
	}
	return migrator.Up(ctx)
}

// runSeed replaces the catalogue with demoMovies
func runSeed(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	db, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	movies := services.NewMovieService(db.Pool)
	removed, err := movies.DeleteAll(ctx)
	if err != nil {
		return err
	}
	created, err := movies.CreateMany(ctx, nil, demoMovies())
	if err != nil {
		return err
	}

	// Reports cached by a running server would otherwise outlive the old catalogue
	invalidateReports(ctx, cfg, logger)

	logger.Info().Int64("removed", removed).Int("created", len(created)).Msg("catalogue seeded")
	return nil
}

// runImport loads a CSV file into the catalogue
func runImport(ctx context.Context, cfg *config.Config, logger zerolog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	transfer := services.NewTransferService(services.NewMovieService(db.Pool), logger)
	created, err := transfer.Import(ctx, nil, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	invalidateReports(ctx, cfg, logger)

	logger.Info().Str("file", path).Int("created", len(created)).Msg("catalogue imported")
	return nil
}

// invalidateReports drops cached analytics reports. Redis being down is not fatal here.
func invalidateReports(ctx context.Context, cfg *config.Config, logger zerolog.Logger) {
	client, err := database.NewRedisClient(database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		TLS:      cfg.Redis.TLS,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cached reports expire on their own")
		return
	}
	defer client.Close()

	cache := database.NewJSONCache(client, "moviestats:analytics", cfg.Analytics.CacheTTL)
	services.NewAnalyticsService(nil, cache, cfg.Analytics.Precision, logger).Invalidate(ctx)
}

func demoMovies() []models.CreateMovieInput {
	rate := func(v float64) *float64 { return &v }
	describe := func(s string) *string { return &s }

	return []models.CreateMovieInput{
		{Title: "The Wandering Earth 2", Category: models.CategoryScienceFiction, Country: models.CountryChina, ReleaseYear: 2023, AverageRating: rate(4.2),
			Description: describe("Humanity builds planetary engines to push Earth out of a dying solar system.")},
		{Title: "Full River Red", Category: models.CategoryMystery, Country: models.CountryChina, ReleaseYear: 2023, AverageRating: rate(4.5),
			Description: describe("A murder in a Song dynasty camp unravels a conspiracy within a single night.")},
		{Title: "Avatar: The Way of Water", Category: models.CategoryScienceFiction, Country: models.CountryUnitedStates, ReleaseYear: 2022, AverageRating: rate(3.8),
			Description: describe("The Sully family seeks refuge with the reef people of Pandora.")},
		{Title: "Oppenheimer", Category: models.CategoryDrama, Country: models.CountryUnitedStates, ReleaseYear: 2023, AverageRating: rate(4.4)},
		{Title: "Spirited Away", Category: models.CategoryArt, Country: models.CountryJapan, ReleaseYear: 2001, AverageRating: rate(4.8),
			Description: describe("A girl wanders into a world of spirits and must work in a bathhouse to free her parents.")},
		{Title: "Shoplifters", Category: models.CategoryDrama, Country: models.CountryJapan, ReleaseYear: 2018, AverageRating: rate(4.1)},
		{Title: "Parasite", Category: models.CategoryDrama, Country: models.CountrySouthKorea, ReleaseYear: 2019, AverageRating: rate(4.6)},
		{Title: "Extreme Job", Category: models.CategoryComedy, Country: models.CountrySouthKorea, ReleaseYear: 2019, AverageRating: rate(3.6)},
		{Title: "Paddington 2", Category: models.CategoryComedy, Country: models.CountryUnitedKingdom, ReleaseYear: 2017, AverageRating: rate(4.3)},
		{Title: "Sherlock Holmes", Category: models.CategoryMystery, Country: models.CountryUnitedKingdom, ReleaseYear: 2009, AverageRating: rate(3.7)},
		{Title: "Amélie", Category: models.CategoryComedy, Country: models.CountryFrance, ReleaseYear: 2001, AverageRating: rate(4.0)},
		{Title: "RRR", Category: models.CategoryOthers, Country: models.CountryIndia, ReleaseYear: 2022, AverageRating: rate(3.9)},
		{Title: "Lost in the Stars", Category: models.CategoryMystery, Country: models.CountryChina, ReleaseYear: 2023},
	}
}
