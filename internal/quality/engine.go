package quality

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Engine runs the five quality metrics over one RecordSet.
type Engine struct {
	settings model.Settings
	log      *zap.Logger
}

// NewEngine creates an Engine bound to the settings of one refresh cycle.
func NewEngine(settings model.Settings) *Engine {
	return &Engine{
		settings: settings,
		log:      zap.L().With(zap.String("component", "quality")),
	}
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() model.Settings {
	return e.settings
}

// Compute runs every metric concurrently. A metric whose input column is
// absent yields an empty result and a warning; a metric that fails is
// recorded in Failures without affecting the others. The RecordSet is only
// read.
func (e *Engine) Compute(ctx context.Context, rs *model.RecordSet) *model.QualityResult {
	res := &model.QualityResult{}
	var mu sync.Mutex
	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if res.Failures == nil {
			res.Failures = make(map[string]string)
		}
		res.Failures[name] = err.Error()
	}

	g, gCtx := errgroup.WithContext(ctx)
	run := func(name string, fn func() bool) {
		g.Go(func() error {
			if gCtx.Err() != nil {
				fail(name, gCtx.Err())
				return nil
			}
			ok, err := guard(fn)
			if err != nil {
				e.log.Error("quality: metric failed",
					zap.String("metric", name),
					zap.Error(err),
				)
				fail(name, err)
				return nil
			}
			if !ok {
				e.log.Warn("quality: input column not found, metric skipped",
					zap.String("metric", name),
				)
			}
			return nil
		})
	}

	district := e.settings.Column(model.RoleDistrict)
	duration := e.settings.Column(model.RoleDuration)

	run(model.MetricCompletion, func() bool {
		rows, ok := CompletionByGroup(rs, e.settings, district)
		res.Completion = rows
		return ok
	})
	run(model.MetricMissing, func() bool {
		res.Missing = MissingProfile(rs)
		return true
	})
	run(model.MetricDuration, func() bool {
		flags, ok := DurationFlags(rs, e.settings, duration)
		res.DurationFlags = flags
		return ok
	})
	run(model.MetricGPS, func() bool {
		summary, ok := GPSQuality(rs, e.settings)
		res.GPS = summary
		return ok
	})
	run(model.MetricEnumerator, func() bool {
		rows, ok := EnumeratorPerformance(rs, e.settings)
		res.Enumerators = rows
		return ok
	})

	// Metric goroutines never return an error.
	_ = g.Wait()

	e.log.Info("quality: metrics computed",
		zap.Int("records", rs.Len()),
		zap.Int("completion_groups", len(res.Completion)),
		zap.Int("fields_with_missing", len(res.Missing)),
		zap.Int("duration_flags", len(res.DurationFlags)),
		zap.Int("enumerators", len(res.Enumerators)),
		zap.Int("failures", len(res.Failures)),
	)
	return res
}

// guard runs fn, converting a panic into an error.
func guard(fn func() bool) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.New(fmt.Sprintf("quality: metric panicked: %v", r))
		}
	}()
	return fn(), nil
}
