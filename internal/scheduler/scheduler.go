package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned by Start when the scheduler is running.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is the work executed on each firing.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc is a function adapter for Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Config holds scheduler configuration.
type Config struct {
	Hour       int            // Hour of day, 0-23
	Minute     int            // Minute of hour, 0-59
	Location   *time.Location // Zone the time of day is read in (default: time.Local)
	RunOnStart bool           // Fire once immediately on Start
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Hour:     18,
		Minute:   0,
		Location: time.Local,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithAfter sets the wait function used between firings.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.after = after
	}
}

// Scheduler fires a Job at a fixed time of day.
type Scheduler struct {
	cfg    Config
	job    Job
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time

	running atomic.Bool
	fired   atomic.Int64
	skipped atomic.Int64

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler.
func New(cfg Config, job Job, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
		after:  time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Hour < 0 || s.cfg.Hour > 23 || s.cfg.Minute < 0 || s.cfg.Minute > 59 {
		return fmt.Errorf("invalid time of day %02d:%02d", s.cfg.Hour, s.cfg.Minute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		"time_of_day", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute),
		"location", s.cfg.Location.String(),
		"run_on_start", s.cfg.RunOnStart,
		"next", s.NextFire(s.now()),
	)

	return nil
}

// Stop cancels the loop and any in-flight run, then waits for both.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a run is executing.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stats returns the number of fired and skipped firings.
func (s *Scheduler) Stats() (fired, skipped int64) {
	return s.fired.Load(), s.skipped.Load()
}

// NextFire returns the first firing time strictly after now.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.Location)
	}
	return next
}

// run is the main scheduling loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.fire()
	}

	for {
		next := s.NextFire(s.now())
		wait := next.Sub(s.now())

		select {
		case <-s.ctx.Done():
			return
		case <-s.after(wait):
			s.fire()
		}
	}
}

// fire starts the job unless a run is already executing.
func (s *Scheduler) fire() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("previous run still executing, skipping firing")
		return false
	}
	s.fired.Add(1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		start := time.Now()
		if err := s.job.Run(s.ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Info("scheduled run complete", "duration", time.Since(start))
	}()

	return true
}
