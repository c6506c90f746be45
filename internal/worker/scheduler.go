package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	applog "famfin/internal/log"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules. A job still running when its
// next tick fires is skipped for that tick.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// NewScheduler interprets schedules in UTC. jobTimeout bounds every run.
func NewScheduler(jobTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobTimeout: jobTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Add registers job under a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	slog.Info("Scheduled job", applog.FieldJob, name, "spec", spec)
	return nil
}

// RunNow executes a registered job body immediately, outside the schedule.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.baseCtx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduled job panicked", applog.FieldJob, name, "panic", r)
		}
	}()

	started := time.Now()
	if err := job(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled job failed", applog.FieldJob, name, "duration", time.Since(started), applog.FieldError, err)
		return
	}
	slog.InfoContext(ctx, "Scheduled job finished", applog.FieldJob, name, "duration", time.Since(started))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running ones and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reports the next run time of every scheduled job.
func (s *Scheduler) Entries() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.Next
	}
	return out
}
