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

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/liamwears/moviestats/internal/config"
	"github.com/liamwears/moviestats/internal/database"
	"github.com/liamwears/moviestats/internal/handlers"
	"github.com/liamwears/moviestats/internal/logging"
	"github.com/liamwears/moviestats/internal/metrics"
	"github.com/liamwears/moviestats/internal/middleware"
	"github.com/liamwears/moviestats/internal/services"
)

const usage = `usage: moviestats [command]

commands:
  serve          run the HTTP server (default)
  migrate        apply pending database migrations
  rollback       roll back the last migration
  seed           replace the catalogue with the demo movies
  import <file>  import movies from a CSV file
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Logger = logger

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx := context.Background()
	switch command {
	case "serve":
		err = serve(cfg, logger)
	case "migrate":
		err = runMigrations(ctx, cfg, logger, false)
	case "rollback":
		err = runMigrations(ctx, cfg, logger, true)
	case "seed":
		err = runSeed(ctx, cfg, logger)
	case "import":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = runImport(ctx, cfg, logger, os.Args[2])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

func serve(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("env", cfg.Server.Env).Msg("starting moviestats server")

	db, err := database.New(database.Config{URL: cfg.Database.URL, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       0,
		TLS:      cfg.Redis.TLS,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	sessionStore := database.NewSessionStore(redisClient, 7*24*time.Hour)
	reportCache := database.NewJSONCache(redisClient, "moviestats:analytics", cfg.Analytics.CacheTTL)

	// Services
	userService := services.NewUserService(db.Pool)
	movieService := services.NewMovieService(db.Pool)
	analyticsService := services.NewAnalyticsService(movieService, reportCache, cfg.Analytics.Precision, logger)
	transferService := services.NewTransferService(movieService, logger)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, userService, "session", cfg.IsProduction(), logger)

	// 100 req/min in production, off in local/dev
	rateLimiter := middleware.NewRateLimiter(redisClient.Client, 100, time.Minute, cfg.IsProduction(), logger)

	renderer, err := handlers.NewRenderer(logger)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	authHandler := handlers.NewAuthHandler(
		userService,
		sessionStore,
		authMiddleware,
		renderer,
		handlers.AuthConfig{
			GoogleClientID:     cfg.OAuth.GoogleClientID,
			GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
			GitHubClientID:     cfg.OAuth.GitHubClientID,
			GitHubClientSecret: cfg.OAuth.GitHubClientSecret,
			CallbackHost:       cfg.OAuth.CallbackHost,
			SecureCookies:      cfg.IsProduction(),
		},
		logger,
	)
	movieHandler := handlers.NewMovieHandler(movieService, transferService, analyticsService, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, logger)
	pageHandler := handlers.NewPageHandler(movieService, analyticsService, renderer, logger)

	mux := http.NewServeMux()

	page := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}
	api := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuthAPI(rateLimiter.Limit(h))
	}

	// Auth routes (public)
	mux.HandleFunc("GET /login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("GET /auth/github/login", authHandler.GitHubLogin)
	mux.HandleFunc("GET /auth/github/callback", authHandler.GitHubCallback)
	mux.HandleFunc("/auth/logout", authHandler.Logout)

	// Pages
	mux.Handle("GET /{$}", page(pageHandler.Home))
	mux.Handle("GET /movies", page(pageHandler.Movies))
	mux.Handle("GET /analytics", page(pageHandler.Analytics))

	// Movie API
	mux.Handle("GET /api/movies", api(movieHandler.List))
	mux.Handle("POST /api/movies", api(movieHandler.Create))
	mux.Handle("GET /api/movies/export", api(movieHandler.Export))
	mux.Handle("POST /api/movies/import", api(movieHandler.Import))
	mux.Handle("GET /api/movies/{id}", api(movieHandler.Get))
	mux.Handle("PATCH /api/movies/{id}", api(movieHandler.Update))
	mux.Handle("DELETE /api/movies/{id}", api(movieHandler.Delete))
	mux.Handle("GET /api/movies/{id}/similar", api(analyticsHandler.Similar))

	// Analytics API
	mux.Handle("GET /api/analytics", api(analyticsHandler.Overview))
	mux.Handle("GET /api/analytics/ratings", api(analyticsHandler.Ratings))
	mux.Handle("GET /api/analytics/stars", api(analyticsHandler.Stars))
	mux.Handle("GET /api/analytics/predict", api(analyticsHandler.Predict))
	mux.Handle("GET /api/analytics/export", api(analyticsHandler.Export))
	mux.Handle("GET /api/recommendations", api(analyticsHandler.Recommend))

	// Ops
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := func(err error) string {
			if err != nil {
				return "down"
			}
			return "up"
		}
		dbErr := db.Health(r.Context())
		redisErr := redisClient.Health(r.Context())

		code := http.StatusOK
		overall := "ok"
		if dbErr != nil || redisErr != nil {
			code = http.StatusServiceUnavailable
			overall = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   overall,
			"database": status(dbErr),
			"redis":    status(redisErr),
		})
	})

	handler := middleware.Recoverer(logger)(middleware.Logger(logger)(mux))

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server exited")
	return nil
}
