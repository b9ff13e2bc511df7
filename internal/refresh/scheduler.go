package refresh

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// Scheduler runs refresh cycles on a cron schedule.
type Scheduler struct {
	orch    *Orchestrator
	spec    string
	onStart bool
	log     *zap.Logger
}

// NewScheduler validates spec (standard cron or a descriptor such as
// "@every 1h"). With onStart set, Run refreshes immediately when no
// dashboard has been published yet.
func NewScheduler(orch *Orchestrator, spec string, onStart bool) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, eris.Wrapf(err, "refresh: invalid schedule %q", spec)
	}
	return &Scheduler{
		orch:    orch,
		spec:    spec,
		onStart: onStart,
		log:     zap.L().With(zap.String("component", "scheduler")),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for a running scheduled
// cycle to return.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{s.log.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.tick(ctx, model.TriggerSchedule) }); err != nil {
		return eris.Wrapf(err, "refresh: schedule %q", s.spec)
	}

	if s.onStart && !s.orch.Status().DocumentExists {
		s.tick(ctx, model.TriggerStartup)
	}

	c.Start()
	s.log.Info("scheduler started", zap.String("schedule", s.spec))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context, trigger model.Trigger) {
	if ctx.Err() != nil {
		return
	}
	err := s.orch.Run(ctx, trigger)
	if errors.Is(err, ErrInProgress) {
		s.log.Info("scheduled refresh skipped, cycle in progress")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
