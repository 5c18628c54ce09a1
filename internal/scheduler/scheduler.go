// Package scheduler triggers the pipeline on a cron schedule in a fixed
// time zone. A cycle that is already running is never interrupted or
// overlapped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Defaults for the daily ingestion trigger.
const (
	DefaultSpec     = "0 7 * * *"
	DefaultTimezone = "Africa/Blantyre"
)

// Job is one pipeline cycle.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	logger  *zap.Logger
	running sync.Mutex

	mu      sync.Mutex
	baseCtx context.Context
}

// New creates a scheduler for spec (standard five-field cron or a
// descriptor such as @daily) evaluated in timezone.
func New(spec, timezone string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:     job,
		logger:  logger,
		baseCtx: context.Background(),
	}

	id, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.baseCtx
		s.mu.Unlock()
		s.run(ctx, "cron")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins triggering. Jobs inherit ctx's values but not its
// cancellation, so canceling ctx never aborts a running cycle; use Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Time("next_run", s.Next()))
}

// RunNow runs the job immediately in the calling goroutine. It returns
// false if a cycle was already running and this one was skipped.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	return s.run(ctx, "manual")
}

// Next is the next scheduled trigger, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop prevents future triggers and waits for a running cycle to finish
// or for ctx to end, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) bool {
	if !s.running.TryLock() {
		s.logger.Warn("previous cycle still running, skipping", zap.String("trigger", trigger))
		return false
	}
	defer s.running.Unlock()

	start := time.Now()
	s.logger.Info("cycle started", zap.String("trigger", trigger))
	if err := s.job(ctx); err != nil {
		s.logger.Error("cycle failed", zap.String("trigger", trigger), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return true
	}
	s.logger.Info("cycle finished", zap.String("trigger", trigger), zap.Duration("duration", time.Since(start)))
	return true
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
