package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/refresh"
	"github.com/mzee2025/rdi-dashboard/internal/report"
	"github.com/mzee2025/rdi-dashboard/internal/source"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
	"github.com/mzee2025/rdi-dashboard/internal/store"
	"github.com/mzee2025/rdi-dashboard/pkg/ona"
)

// app bundles the components shared by the commands.
type app struct {
	Files *storage.FileStore
	Runs  store.Store
	Orch  *refresh.Orchestrator
}

// initApp validates the config for mode and wires the orchestrator. src may
// be nil for commands that never run a cycle. reg, when set, receives the
// refresh metrics.
func initApp(ctx context.Context, mode string, src source.Source, reg prometheus.Registerer) (*app, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	runs, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	orch := refresh.New(refresh.Config{
		Source:       src,
		Files:        files,
		Runs:         runs,
		SettingsPath: cfg.Settings.Path,
		Assembler:    report.NewAssembler(report.Options{RefreshInterval: cfg.Refresh.Interval}),
		Metrics:      refresh.NewMetrics(reg),
	})
	if err := orch.Init(ctx); err != nil {
		runs.Close() //nolint:errcheck
		return nil, err
	}

	return &app{Files: files, Runs: runs, Orch: orch}, nil
}

// Close waits for background cycles and releases the run store.
func (a *app) Close() {
	a.Orch.Wait()
	if err := a.Runs.Close(); err != nil {
		zap.L().Warn("close run store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func initONASource() (source.Source, error) {
	client, err := ona.NewClient(cfg.Source.Token, cfg.Source.FormID,
		ona.WithBaseURL(cfg.Source.BaseURL),
		ona.WithTimeout(time.Duration(cfg.Source.TimeoutSecs)*time.Second),
		ona.WithMaxRetries(cfg.Source.MaxRetries),
		ona.WithRate(cfg.Source.RatePerSec),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Source.Token == "" {
		zap.L().Warn("source.token is empty, requesting ONA data anonymously")
	}
	return source.NewONASource(client, cfg.Source.FormID, cfg.Source.Query), nil
}
