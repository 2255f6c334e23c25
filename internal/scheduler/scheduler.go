// ABOUTME: Background driver for periodic feed refresh and retention cleanup
// ABOUTME: Runs two cron jobs that skip while still running and survive errors and panics

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harper/inkreader/internal/metrics"
	"github.com/harper/inkreader/internal/reader"
	"github.com/harper/inkreader/internal/timeutil"
)

// Job names a scheduled duty.
type Job string

const (
	JobRefresh Job = "refresh"
	JobCleanup Job = "cleanup"
)

// ErrJobRunning is returned by RunNow when the job is already executing.
var ErrJobRunning = errors.New("job is already running")

// Runner performs the scheduled duties. *reader.Core satisfies it.
type Runner interface {
	RefreshAllFeeds(ctx context.Context) (*reader.RefreshReport, error)
	CleanupOldArticles(ctx context.Context) (int64, error)
}

// Options configures a Scheduler.
type Options struct {
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	// InitialRefresh runs a refresh as soon as Start is called.
	InitialRefresh bool

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     timeutil.Clock
}

// Status describes the last run of a job.
type Status struct {
	Job       Job
	Running   bool
	LastStart time.Time
	LastTook  time.Duration
	LastErr   error
	Runs      int
	Next      time.Time
}

type task struct {
	job     Job
	run     func(ctx context.Context) error
	entry   cron.EntryID
	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// Scheduler owns the cron instance and the two tasks.
type Scheduler struct {
	cron    *cron.Cron
	tasks   map[Job]*task
	opts    Options
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a scheduler for runner. Both intervals must be positive.
func New(runner Runner, opts Options) (*Scheduler, error) {
	if opts.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", opts.RefreshInterval)
	}
	if opts.CleanupInterval <= 0 {
		return nil, fmt.Errorf("cleanup interval must be positive, got %s", opts.CleanupInterval)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = timeutil.System
	}

	log := opts.Logger.With(slog.String("component", "scheduler"))
	cl := cronLogger{l: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		tasks:   make(map[Job]*task, 2),
		opts:    opts,
		log:     log,
		metrics: opts.Metrics,
		ctx:     context.Background(),
	}

	s.tasks[JobRefresh] = &task{job: JobRefresh, run: func(ctx context.Context) error {
		_, err := runner.RefreshAllFeeds(ctx)
		return err
	}}
	s.tasks[JobCleanup] = &task{job: JobCleanup, run: func(ctx context.Context) error {
		_, err := runner.CleanupOldArticles(ctx)
		return err
	}}

	for job, interval := range map[Job]time.Duration{
		JobRefresh: opts.RefreshInterval,
		JobCleanup: opts.CleanupInterval,
	} {
		t := s.tasks[job]
		t.entry = s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
			if err := s.execute(s.jobContext(), t); err != nil && !errors.Is(err, ErrJobRunning) {
				s.log.Error("scheduled job failed", slog.String("job", string(t.job)), slog.Any("error", err))
			}
		}))
	}
	return s, nil
}

// Start begins scheduling. Jobs run with contexts derived from ctx, so
// cancelling ctx aborts work in progress.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("scheduler started",
		slog.Duration("refresh_interval", s.opts.RefreshInterval),
		slog.Duration("cleanup_interval", s.opts.CleanupInterval))

	if s.opts.InitialRefresh {
		go func() {
			if err := s.RunNow(s.jobContext(), JobRefresh); err != nil && !errors.Is(err, ErrJobRunning) {
				s.log.Error("initial refresh failed", slog.Any("error", err))
			}
		}()
	}
}

// Stop stops scheduling and waits for running jobs to finish or for ctx to
// expire, whichever comes first. Job contexts are cancelled afterwards.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	}()

	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// RunNow runs job synchronously. It returns ErrJobRunning when the job is
// already executing, scheduled or not.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	t, ok := s.tasks[job]
	if !ok {
		return fmt.Errorf("unknown job %q", job)
	}
	return s.execute(ctx, t)
}

// Status reports every job's last run and next scheduled time.
func (s *Scheduler) Status() []Status {
	out := make([]Status, 0, len(s.tasks))
	for _, job := range []Job{JobRefresh, JobCleanup} {
		t := s.tasks[job]
		t.mu.Lock()
		st := t.status
		t.mu.Unlock()
		st.Job = job
		st.Running = t.running.Load()
		st.Next = s.cron.Entry(t.entry).Next
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// execute runs t once, unless it is already running. Panics become errors.
func (s *Scheduler) execute(ctx context.Context, t *task) (err error) {
	if !t.running.CompareAndSwap(false, true) {
		s.metrics.RecordSkipped(string(t.job))
		s.log.Info("job still running, skipped", slog.String("job", string(t.job)))
		return ErrJobRunning
	}
	defer t.running.Store(false)

	start := s.opts.Now()
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", t.job, r)
			s.log.Error("job panicked", slog.String("job", string(t.job)), slog.String("stack", string(debug.Stack())))
		}
		took := time.Since(began)
		s.metrics.RecordJob(string(t.job), err, took)

		t.mu.Lock()
		t.status.LastStart = start
		t.status.LastTook = took
		t.status.LastErr = err
		t.status.Runs++
		t.mu.Unlock()
	}()

	return t.run(ctx)
}
