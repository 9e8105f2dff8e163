package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/edgard/welcomebot/internal/logger"
)

// ErrSchedulerStopped is returned by After once Stop has been called.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Scheduler runs deferred one-time tasks, such as welcome message deletions,
// on gocron's goroutines so the caller never blocks on the delay.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context // handed to every task; cancelled on Stop
	cancel    context.CancelFunc
	pending   atomic.Int64
	mu        sync.Mutex // To protect access during start/stop
	running   bool
	stopped   bool
}

// NewScheduler creates a new scheduler instance using gocron.
// Extra gocron options (for example a custom clock) are passed through.
func NewScheduler(log *slog.Logger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{logger: log.With("component", "scheduler")}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// One-time jobs are dropped from the registry once they have fired.
	opts = append([]gocron.SchedulerOption{
		gocron.WithLogger(logger.NewGocronLogger(s.logger)),
		gocron.WithGlobalJobOptions(gocron.WithEventListeners(
			gocron.AfterJobRuns(func(jobID uuid.UUID, _ string) { go s.forget(jobID) }),
		)),
	}, opts...)

	gs, err := gocron.NewScheduler(opts...)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.scheduler = gs

	return s, nil
}

// Start begins executing scheduled tasks.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started")
	return nil
}

// After schedules task to run once, delay from now. The task receives a
// context that is cancelled when the scheduler stops.
func (s *Scheduler) After(delay time.Duration, name string, task func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	startAt := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		startAt = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(startAt),
		gocron.NewTask(
			func(ctx context.Context, name string) {
				defer s.pending.Add(-1)
				s.logger.Debug("Running deferred task", "task_name", name)
				task(ctx)
			},
			s.ctx,
			name,
		),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", name, err)
	}

	s.pending.Add(1)
	s.logger.Debug("Scheduled deferred task", "task_name", name, "delay", delay)
	return nil
}

// Pending reports how many scheduled tasks have not run yet.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Stop cancels the context of running tasks and shuts the scheduler down,
// waiting for those tasks to return. Tasks that have not fired yet are dropped.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Info("Scheduler is already stopped, nothing to do.")
		return nil
	}
	s.stopped = true

	if dropped := s.Pending(); dropped > 0 {
		s.logger.Info("Dropping pending deferred tasks", "count", dropped)
	}

	// Running tasks must see cancellation before gocron waits on them.
	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}

func (s *Scheduler) forget(jobID uuid.UUID) {
	if err := s.scheduler.RemoveJob(jobID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Debug("Failed to remove finished job", "job_id", jobID, "error", err)
	}
}
