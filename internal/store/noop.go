package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Noop is a Store that keeps no history.
type Noop struct{}

func (Noop) CreateRun(_ context.Context, trigger model.Trigger) (*model.Run, error) {
	return &model.Run{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (Noop) FinishRun(context.Context, string, model.RunStatus, *model.RunResult) error { return nil }
func (Noop) ListRuns(context.Context, int) ([]model.Run, error) { return nil, nil }
func (Noop) LastSuccess(context.Context) (*time.Time, error) { return nil, nil }
func (Noop) Migrate(context.Context) error { return nil }
func (Noop) Close() error { return nil }
