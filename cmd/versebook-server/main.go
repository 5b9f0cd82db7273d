// Package main is the entry point for the Versebook API server.
// Versebook serves the book-user, link, and poem resources with a shared
// soft-delete lifecycle and JWT authentication.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/auth"
	"github.com/versebook/versebook/internal/cache/memory"
	"github.com/versebook/versebook/internal/cache/redis"
	"github.com/versebook/versebook/internal/config"
	"github.com/versebook/versebook/internal/handler"
	"github.com/versebook/versebook/internal/metrics"
	"github.com/versebook/versebook/internal/repository"
	"github.com/versebook/versebook/internal/repository/factory"
	"github.com/versebook/versebook/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting versebook server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	userDef := service.UserDefinition()
	linkDef := service.LinkDefinition()
	poemDef := service.PoemDefinition()

	store, err := factory.New(ctx, cfg.Database, logger,
		userDef.Collection, linkDef.Collection, poemDef.Collection)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	cache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cache.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	users := service.NewLifecycleService(store, cache, userDef, cfg.Cache.RecordTTL, logger)
	links := service.NewLifecycleService(store, cache, linkDef, cfg.Cache.RecordTTL, logger)
	poems := service.NewLifecycleService(store, cache, poemDef, cfg.Cache.RecordTTL, logger)
	authSvc := service.NewAuthService(store, cache, tokens, cfg.Auth.BcryptCost, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go serveMetrics(ctx, cfg.Metrics, m, logger)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:    handler.NewAuthHandler(authSvc, logger),
		Users:   handler.NewResourceHandler(users, logger),
		Links:   handler.NewResourceHandler(links, logger),
		Poems:   handler.NewResourceHandler(poems, logger),
		Tokens:  tokens,
		Metrics: m,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newCache picks Redis when enabled and falls back to the in-process cache.
func newCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, error) {
	if cfg.Redis.Enabled {
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis cache")
		return redis.NewCache(ctx, cfg.Redis, logger)
	}
	return memory.NewCache(), nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// serveMetrics runs the Prometheus scrape endpoint on its own port.
func serveMetrics(ctx context.Context, cfg config.MetricsConfig, m *metrics.Metrics, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", cfg.Port).Str("path", cfg.Path).Msg("metrics endpoint listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}
