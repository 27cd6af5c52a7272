// Package scheduler drives repeating poll jobs on independent tickers.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one repeating task. Run receives the scheduler's context and is
// expected to return once that context is done.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler fires each job once at start and then every Interval.
// Ticks never wait for the previous run of the same job.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	group    *errgroup.Group
	inflight sync.WaitGroup
}

// New validates jobs and creates a stopped scheduler.
func New(logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, errors.New("scheduler: at least one job required")
	}
	for _, j := range jobs {
		if j.Interval <= 0 {
			return nil, errors.New("scheduler: interval must be > 0 for job " + j.Name)
		}
		if j.Run == nil {
			return nil, errors.New("scheduler: nil run func for job " + j.Name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{jobs: jobs, logger: logger}, nil
}

// Start launches one ticker loop per job. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			s.loop(gctx, job)
			return nil
		})
	}
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	log := s.logger.With("job", job.Name)
	log.Info("job started", "interval", job.Interval)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.fire(ctx, job)
	for {
		select {
		case <-ctx.Done():
			log.Info("job stopped")
			return
		case <-ticker.C:
			s.fire(ctx, job)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		job.Run(ctx)
	}()
}

// Stop cancels every job and waits for the ticker loops and any runs still
// in flight to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
	s.inflight.Wait()
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
