// Package factory constructs the configured document store backend.
// It lives in its own package so the backend packages can import
// repository without a cycle.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/config"
	"github.com/versebook/versebook/internal/repository"
	"github.com/versebook/versebook/internal/repository/memory"
	"github.com/versebook/versebook/internal/repository/postgres"
	"github.com/versebook/versebook/internal/repository/sqlite"
)

// New creates the store named by the configuration and prepares the given
// collections (tables and partial unique indexes).
func New(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger, cols ...repository.Collection) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(ctx, sqlite.Config{
			Path:            cfg.Path,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			SynchronousMode: cfg.SynchronousMode,
		}, logger, cols...)
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:             cfg.DSN(),
			MaxConns:        cfg.MaxOpenConns,
			MinConns:        cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}, logger, cols...)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
