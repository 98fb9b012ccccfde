package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TickFunc runs one reconciliation cycle.
type TickFunc func(ctx context.Context) error

// Options tune scheduler behaviour. CronSpec uses the standard five-field
// cron format; the default configuration fires at fixed minute-marks to
// match the upstream inventory refresh cadence.
type Options struct {
	CronSpec   string
	RunAtStart bool
}

// Scheduler triggers reconciliation cycles at wall-clock offsets. A delayed
// chain guarantees cycles never overlap: a tick that fires while the
// previous cycle still runs waits for it to finish.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.CronSpec == "" {
		panic("scheduler cron spec must be set")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the tick function on schedule until ctx is cancelled.
// With RunAtStart it fires once immediately before the cron takes over.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.RunAtStart {
		s.logger.Info().Msg("executing startup tick")
		if err := tick(ctx); err != nil {
			s.logger.Error().Err(err).Msg("startup tick failed")
		}
	}

	adapter := cronLogger{logger: s.logger}
	runner := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.DelayIfStillRunning(adapter)),
	)

	_, err := runner.AddFunc(s.opts.CronSpec, func() {
		s.logger.Info().Msg("executing scheduled tick")
		if tickErr := tick(ctx); tickErr != nil {
			s.logger.Error().Err(tickErr).Msg("tick execution failed")
		}
	})
	if err != nil {
		return fmt.Errorf("register cron spec %q: %w", s.opts.CronSpec, err)
	}

	runner.Start()
	<-ctx.Done()

	stopCtx := runner.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

var _ cron.Logger = cronLogger{}
