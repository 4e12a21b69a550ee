// Package storage selects the persistence backend for the scheduling engine.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/db"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage/postgres"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend is a store the engine can run on that also relays its outbox.
type Backend interface {
	engine.Store
	outbox.Source
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool
	MaxConns    int32
}

func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres, "":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.New(pool)
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return store, nil
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
