package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Jobs are the two daily tasks.
type Jobs interface {
	RunSearch(ctx context.Context) error
	RunTracking(ctx context.Context) error
}

// Job names, shared with metrics labels.
const (
	JobSearch   = "search"
	JobTracking = "tracking"
)

// Scheduler runs the search and tracking jobs on cron schedules. Jobs never
// overlap: a tick that finds another job running is skipped.
type Scheduler struct {
	Cron *cron.Cron
	Jobs Jobs
	Ctx  context.Context
	Log  *zap.Logger

	// OnSkip and OnRun are optional hooks for metrics and health reporting.
	OnSkip func(job string)
	OnRun  func(job string, at time.Time, err error)

	mu      sync.Mutex
	stopped bool
}

// NewScheduler creates a Scheduler with second-resolution specs. A panicking
// job is recovered and logged.
func NewScheduler(ctx context.Context, jobs Jobs, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLog)), cron.WithLogger(cronLog)),
		Jobs: jobs,
		Ctx:  ctx,
		Log:  log,
	}
}

// RegisterAll registers the search and tracking jobs.
func (s *Scheduler) RegisterAll(searchCron, trackingCron string) error {
	if _, err := s.Cron.AddFunc(searchCron, func() { s.run(JobSearch, s.Jobs.RunSearch) }); err != nil {
		return fmt.Errorf("register search task: %w", err)
	}
	if _, err := s.Cron.AddFunc(trackingCron, func() { s.run(JobTracking, s.Jobs.RunTracking) }); err != nil {
		return fmt.Errorf("register tracking task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running job to finish,
// including one started by RunSearchNow or RunTrackingNow. Later manual
// triggers are refused.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.Log.Info("scheduler stopped")
}

// RunSearchNow executes the search job immediately (manual trigger / run_on_start).
func (s *Scheduler) RunSearchNow() bool { return s.run(JobSearch, s.Jobs.RunSearch) }

// RunTrackingNow executes the tracking job immediately.
func (s *Scheduler) RunTrackingNow() bool { return s.run(JobTracking, s.Jobs.RunTracking) }

// run executes job unless another one holds the lock, and reports whether it ran.
func (s *Scheduler) run(name string, job func(context.Context) error) bool {
	if !s.mu.TryLock() {
		s.Log.Warn("job already running, skipping tick", zap.String("job", name))
		if s.OnSkip != nil {
			s.OnSkip(name)
		}
		return false
	}
	defer s.mu.Unlock()
	if s.stopped {
		s.Log.Warn("scheduler stopped, not running job", zap.String("job", name))
		return false
	}

	s.Log.Info("running job", zap.String("job", name))
	started := time.Now()
	err := job(s.Ctx)
	if err != nil {
		s.Log.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(started)), zap.Error(err))
	} else {
		s.Log.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(started)))
	}
	if s.OnRun != nil {
		s.OnRun(name, time.Now(), err)
	}
	return true
}
