// Package refresh runs the fetch, normalize, compute, assemble cycle that
// publishes a new dashboard, and tracks its state.
package refresh

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/normalize"
	"github.com/mzee2025/rdi-dashboard/internal/quality"
	"github.com/mzee2025/rdi-dashboard/internal/report"
	"github.com/mzee2025/rdi-dashboard/internal/settings"
	"github.com/mzee2025/rdi-dashboard/internal/source"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
	"github.com/mzee2025/rdi-dashboard/internal/store"
)

var (
	// ErrInProgress rejects a trigger received while a cycle is running.
	ErrInProgress = errors.New("refresh: update already in progress")
	// ErrNoData means no Record Set has been persisted yet.
	ErrNoData = errors.New("refresh: no data available")
)

// State is the orchestrator's position in the refresh state machine.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Status is the externally visible refresh state.
type Status struct {
	State           State            `json:"state"`
	LastSuccess     *time.Time       `json:"last_success_time"`
	InProgress      bool             `json:"in_progress"`
	RecordSetExists bool             `json:"record_set_exists"`
	DocumentExists  bool             `json:"document_exists"`
	LastError       string           `json:"last_error,omitempty"`
	LastErrorKind   model.ErrorKind  `json:"last_error_kind,omitempty"`
	LastStats       *normalize.Stats `json:"last_stats,omitempty"`
}

// Config wires an Orchestrator. Source and Files are required.
type Config struct {
	Source       source.Source
	Files        *storage.FileStore
	Runs         store.Store
	SettingsPath string
	Assembler    *report.Assembler
	Metrics      *Metrics
	Now          func() time.Time
}

// Orchestrator owns the refresh state. At most one cycle runs at a time.
type Orchestrator struct {
	cfg Config
	log *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu          sync.RWMutex
	state       State
	lastSuccess *time.Time
	lastErr     error
	lastStats   *normalize.Stats
}

// New creates an Orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	if cfg.Runs == nil {
		cfg.Runs = store.Noop{}
	}
	if cfg.Assembler == nil {
		cfg.Assembler = report.NewAssembler(report.Options{})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		cfg:   cfg,
		log:   zap.L().With(zap.String("component", "refresh")),
		state: StateIdle,
	}
}

// Init seeds the last success time from run history and starts in Ready
// when a dashboard has already been published.
func (o *Orchestrator) Init(ctx context.Context) error {
	last, err := o.cfg.Runs.LastSuccess(ctx)
	if err != nil {
		return eris.Wrap(err, "refresh: load last success")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if last != nil {
		o.lastSuccess = last
		o.cfg.Metrics.LastSuccess.Set(float64(last.Unix()))
	}
	if o.cfg.Files.DocumentExists(storage.DashboardFile) {
		o.state = StateReady
	}
	return nil
}

// Trigger starts a cycle in the background and returns immediately. It
// returns ErrInProgress if a cycle is already running. The cycle outlives
// ctx cancellation but keeps its values.
func (o *Orchestrator) Trigger(ctx context.Context, trigger model.Trigger) error {
	if !o.claim(trigger) {
		return ErrInProgress
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.cycle(context.WithoutCancel(ctx), trigger)
	}()
	return nil
}

// Run executes one cycle synchronously. It returns ErrInProgress if a cycle
// is already running, or the cycle's *model.CycleError on failure.
func (o *Orchestrator) Run(ctx context.Context, trigger model.Trigger) error {
	if !o.claim(trigger) {
		return ErrInProgress
	}
	return o.cycle(ctx, trigger)
}

// Wait blocks until background cycles started by Trigger have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) claim(trigger model.Trigger) bool {
	if !o.running.CompareAndSwap(false, true) {
		o.cfg.Metrics.Cycles.WithLabelValues(ResultRejected).Inc()
		o.log.Info("refresh rejected, cycle in progress", zap.String("trigger", string(trigger)))
		return false
	}
	o.mu.Lock()
	o.state = StateFetching
	o.mu.Unlock()
	return true
}

func (o *Orchestrator) cycle(ctx context.Context, trigger model.Trigger) error {
	defer o.running.Store(false)

	start := o.cfg.Now()
	log := o.log.With(zap.String("trigger", string(trigger)), zap.String("source", o.cfg.Source.Name()))
	log.Info("refresh started")

	run, err := o.cfg.Runs.CreateRun(ctx, trigger)
	if err != nil {
		log.Warn("refresh: record run start", zap.Error(err))
	}

	s := settings.Load(o.cfg.SettingsPath)
	stats, failures, err := o.execute(ctx, s)
	finished := o.cfg.Now()
	elapsed := finished.Sub(start)

	result := &model.RunResult{DurationMs: elapsed.Milliseconds(), Failures: failures}
	if stats != nil {
		result.Fetched, result.Dropped, result.Kept = stats.Fetched, stats.Dropped, stats.Kept
	}

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
		o.lastErr = err
	} else {
		o.state = StateReady
		o.lastErr = nil
		o.lastSuccess = &finished
		o.lastStats = stats
	}
	o.mu.Unlock()

	status := model.RunStatusComplete
	if err != nil {
		status = model.RunStatusFailed
		result.ErrorKind = model.KindOf(err)
		result.Error = err.Error()
		o.cfg.Metrics.Cycles.WithLabelValues(ResultFailure).Inc()
		log.Error("refresh failed",
			zap.String("kind", string(result.ErrorKind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		o.cfg.Metrics.Cycles.WithLabelValues(ResultSuccess).Inc()
		o.cfg.Metrics.Duration.Observe(elapsed.Seconds())
		o.cfg.Metrics.Records.Set(float64(stats.Kept))
		o.cfg.Metrics.Dropped.Set(float64(stats.Dropped))
		o.cfg.Metrics.LastSuccess.Set(float64(finished.Unix()))
		log.Info("refresh complete",
			zap.Int("fetched", stats.Fetched),
			zap.Int("dropped", stats.Dropped),
			zap.Int("kept", stats.Kept),
			zap.Strings("metric_failures", failures),
			zap.Duration("elapsed", elapsed),
		)
	}

	if run != nil {
		if ferr := o.cfg.Runs.FinishRun(context.WithoutCancel(ctx), run.ID, status, result); ferr != nil {
			log.Warn("refresh: record run finish", zap.String("run_id", run.ID), zap.Error(ferr))
		}
	}
	return err
}

// execute runs the stages in order. The first failing stage aborts the
// rest, so nothing is published from a failed cycle.
func (o *Orchestrator) execute(ctx context.Context, s model.Settings) (*normalize.Stats, []string, error) {
	raw, err := o.cfg.Source.Fetch(ctx)
	if err != nil {
		return nil, nil, model.NewCycleError(model.KindSourceUnavailable, "fetch", err)
	}

	rs, stats := normalize.New(s).NormalizeSet(raw)

	res := quality.NewEngine(s).Compute(context.WithoutCancel(ctx), rs)
	failures := make([]string, 0, len(res.Failures))
	for name := range res.Failures {
		failures = append(failures, name)
	}
	sort.Strings(failures)

	doc, err := o.cfg.Assembler.Dashboard(rs, res, s)
	if err != nil {
		return &stats, failures, model.NewCycleError(model.KindRenderFailure, "assemble", err)
	}

	artifacts, err := storage.RecordSetArtifacts(rs)
	if err != nil {
		return &stats, failures, model.NewCycleError(model.KindPersistenceFailure, "persist", err)
	}
	artifacts = append(artifacts, storage.Artifact{Name: storage.DashboardFile, Data: doc})
	// The record set and the dashboard are replaced together or not at all.
	if err := o.cfg.Files.Publish(artifacts...); err != nil {
		return &stats, failures, model.NewCycleError(model.KindPersistenceFailure, "publish", err)
	}
	return &stats, failures, nil
}

// Status reports the current refresh state.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	st := Status{
		State:       o.state,
		LastSuccess: o.lastSuccess,
		LastStats:   o.lastStats,
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
		st.LastErrorKind = model.KindOf(o.lastErr)
	}
	o.mu.RUnlock()

	st.InProgress = o.running.Load()
	st.RecordSetExists = o.cfg.Files.RecordSetExists()
	st.DocumentExists = o.cfg.Files.DocumentExists(storage.DashboardFile)
	return st
}

// LastSuccess returns the completion time of the last successful cycle.
func (o *Orchestrator) LastSuccess() *time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastSuccess
}

// Dashboard returns the last published dashboard, or storage.ErrNotFound.
func (o *Orchestrator) Dashboard() ([]byte, error) {
	return o.cfg.Files.ReadDocument(storage.DashboardFile)
}

// Export returns the CSV export of the last persisted Record Set.
func (o *Orchestrator) Export() ([]byte, error) {
	data, err := o.cfg.Files.ReadDocument(storage.ExportFile)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoData
	}
	return data, err
}

// QualityReport renders the spreadsheet from the persisted Record Set with
// freshly loaded settings. It does not fetch.
func (o *Orchestrator) QualityReport(ctx context.Context) ([]byte, error) {
	rs, err := o.cfg.Files.LoadRecordSet()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}

	s := settings.Load(o.cfg.SettingsPath)
	res := quality.NewEngine(s).Compute(ctx, rs)
	data, err := o.cfg.Assembler.Spreadsheet(rs, res, s)
	if err != nil {
		return nil, model.NewCycleError(model.KindRenderFailure, "report", err)
	}
	return data, nil
}

// Runs lists recent cycles from run history.
func (o *Orchestrator) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	return o.cfg.Runs.ListRuns(ctx, limit)
}
