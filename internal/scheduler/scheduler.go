// Package scheduler triggers the daily notification batch.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Timeout bounds a single run.
const Timeout = 2 * time.Minute

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	log  *slog.Logger
}

// New creates a scheduler running job on the standard cron spec in loc.
func New(spec string, loc *time.Location, job Job, log *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		job:  job,
		log:  log,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduling %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler", "next", s.Next())
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow runs the job immediately in the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()
	return s.job(ctx)
}

func (s *Scheduler) tick() {
	start := time.Now()
	if err := s.RunNow(context.Background()); err != nil {
		s.log.Error("scheduled job failed", "error", err, "duration", time.Since(start))
		return
	}
	s.log.Info("scheduled job finished", "duration", time.Since(start))
}
