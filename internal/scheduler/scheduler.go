// Package scheduler runs recurring jobs, each owning private state that is
// only touched inside its own ticks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"satcore/internal/logging"
)

// Job is a recurring unit of work over state S. Run may mutate *state; the
// scheduler guarantees no two Runs of the same handle overlap.
type Job[S any] interface {
	Name() string
	Run(ctx context.Context, state *S) error
}

// Schedule controls when a job ticks.
type Schedule struct {
	Interval       time.Duration
	RunImmediately bool
}

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger
	// MaxTickDuration bounds every tick through its context. Required.
	MaxTickDuration time.Duration
	// Registerer receives the scheduler metrics; nil keeps them unregistered.
	Registerer prometheus.Registerer
}

// Scheduler owns the registered jobs and their ticker goroutines.
type Scheduler struct {
	logger  *slog.Logger
	maxTick time.Duration
	metrics *Metrics

	mu      sync.Mutex
	runners []runner
	names   map[string]struct{}
	cancel  context.CancelFunc
	group   *errgroup.Group
}

type runner interface {
	jobName() string
	schedule() Schedule
	tick(ctx context.Context) error
}

// New creates a Scheduler from cfg.
func New(cfg Config) (*Scheduler, error) {
	if cfg.MaxTickDuration <= 0 {
		return nil, errors.New("scheduler: max tick duration must be positive")
	}
	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		maxTick: cfg.MaxTickDuration,
		metrics: metrics,
		names:   make(map[string]struct{}),
	}, nil
}

// Handle is the exclusive owner of one job's state.
type Handle[S any] struct {
	s     *Scheduler
	job   Job[S]
	sched Schedule

	mu    sync.Mutex
	state S
}

// Register adds job to s with its initial state. Jobs must be registered
// before Start, and names must be unique.
func Register[S any](s *Scheduler, job Job[S], initial S, sched Schedule) (*Handle[S], error) {
	if sched.Interval <= 0 {
		return nil, fmt.Errorf("scheduler: job %q: interval must be positive", job.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return nil, fmt.Errorf("scheduler: job %q registered after start", job.Name())
	}
	if _, dup := s.names[job.Name()]; dup {
		return nil, fmt.Errorf("scheduler: job %q already registered", job.Name())
	}
	h := &Handle[S]{s: s, job: job, sched: sched, state: initial}
	s.names[job.Name()] = struct{}{}
	s.runners = append(s.runners, h)
	return h, nil
}

func (h *Handle[S]) jobName() string    { return h.job.Name() }
func (h *Handle[S]) schedule() Schedule { return h.sched }
func (h *Handle[S]) tick(ctx context.Context) error {
	return h.Tick(ctx)
}

// Tick runs the job once under the handle's lock and the scheduler's tick
// timeout. Failures are logged and counted, then returned.
func (h *Handle[S]) Tick(ctx context.Context) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := h.job.Name()
	runID := uuid.NewString()
	logger := h.s.logger.With("job", name, "run_id", runID)
	ctx, cancel := context.WithTimeout(ctx, h.s.maxTick)
	defer cancel()

	start := time.Now()
	logger.Debug("job tick started")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		elapsed := time.Since(start)
		h.s.metrics.TickDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		if err != nil {
			h.s.metrics.TicksTotal.WithLabelValues(name, outcomeFailure).Inc()
			logger.Error("job tick failed", "duration", elapsed, logging.Failure(err))
			return
		}
		h.s.metrics.TicksTotal.WithLabelValues(name, outcomeSuccess).Inc()
		h.s.metrics.LastSuccess.WithLabelValues(name).SetToCurrentTime()
		logger.Info("job tick finished", "duration", elapsed)
	}()
	return h.job.Run(ctx, &h.state)
}

// Snapshot returns a copy of the job state. Intended for tests and diagnostics.
func (h *Handle[S]) Snapshot() S {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Start launches one ticker goroutine per registered job. Tick failures never
// stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return errors.New("scheduler: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	for _, r := range s.runners {
		group.Go(func() error {
			s.loop(gctx, r)
			return nil
		})
	}
	s.cancel, s.group = cancel, group
	s.logger.Info("scheduler started", "jobs", len(s.runners))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, r runner) {
	sched := r.schedule()
	if sched.RunImmediately {
		_ = r.tick(ctx)
	}
	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.tick(ctx)
		}
	}
}

// Stop cancels every job loop and waits for in-flight ticks to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	cancel()
	err := group.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

// Metrics exposes the collectors for tests.
func (s *Scheduler) Metrics() *Metrics { return s.metrics }
