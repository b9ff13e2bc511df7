// Package store records the history of refresh cycles.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// DefaultListLimit bounds ListRuns when the caller passes no limit.
const DefaultListLimit = 20

// Store defines the persistence interface for refresh run history.
type Store interface {
	CreateRun(ctx context.Context, trigger model.Trigger) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	// LastSuccess returns the finish time of the most recent complete run,
	// or nil if there is none.
	LastSuccess(ctx context.Context) (*time.Time, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures the Store implementation.
type Config struct {
	Driver      string
	DatabaseURL string
	MaxConns    int32
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open creates the configured Store and applies its migration.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		s, err = NewSQLite(cfg.DatabaseURL)
	case DriverPostgres:
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	case DriverNone:
		return Noop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
