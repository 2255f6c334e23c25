// ABOUTME: Tests for the background scheduler
// ABOUTME: Uses a fake runner to check scheduling, skipping, error and panic survival

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/inkreader/internal/logctx"
	"github.com/harper/inkreader/internal/metrics"
	"github.com/harper/inkreader/internal/reader"
)

type fakeRunner struct {
	refreshes atomic.Int32
	cleanups  atomic.Int32

	refreshErr error
	panicOnce  atomic.Bool
	block      chan struct{} // when set, refresh waits on it
	started    chan struct{}
}

func (f *fakeRunner) RefreshAllFeeds(ctx context.Context) (*reader.RefreshReport, error) {
	f.refreshes.Add(1)
	if f.panicOnce.CompareAndSwap(true, false) {
		panic("feed exploded")
	}
	if f.block != nil {
		f.started <- struct{}{}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &reader.RefreshReport{}, f.refreshErr
}

func (f *fakeRunner) CleanupOldArticles(ctx context.Context) (int64, error) {
	f.cleanups.Add(1)
	return 0, nil
}

func newScheduler(t *testing.T, r Runner, opts Options) *Scheduler {
	t.Helper()
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = time.Hour
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = time.Hour
	}
	opts.Logger = logctx.Discard()
	s, err := New(r, opts)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsBadIntervals(t *testing.T) {
	_, err := New(&fakeRunner{}, Options{RefreshInterval: 0, CleanupInterval: time.Hour})
	assert.Error(t, err)
	_, err = New(&fakeRunner{}, Options{RefreshInterval: time.Hour, CleanupInterval: -time.Second})
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	r := &fakeRunner{}
	m := metrics.New()
	s := newScheduler(t, r, Options{Metrics: m})
	ctx := context.Background()

	require.NoError(t, s.RunNow(ctx, JobRefresh))
	require.NoError(t, s.RunNow(ctx, JobCleanup))
	require.NoError(t, s.RunNow(ctx, JobCleanup))

	assert.Equal(t, int32(1), r.refreshes.Load())
	assert.Equal(t, int32(2), r.cleanups.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CycleTotal.WithLabelValues("cleanup", "ok")))

	assert.Error(t, s.RunNow(ctx, Job("compact")))
}

func TestRunNow_SkipsWhileRunning(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	m := metrics.New()
	s := newScheduler(t, r, Options{Metrics: m})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.RunNow(ctx, JobRefresh) }()
	<-r.started

	assert.ErrorIs(t, s.RunNow(ctx, JobRefresh), ErrJobRunning)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesSkipped.WithLabelValues("refresh")))

	// cleanup is independent of refresh
	require.NoError(t, s.RunNow(ctx, JobCleanup))

	close(r.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), r.refreshes.Load())
}

func TestRunNow_ErrorAndPanicAreReported(t *testing.T) {
	r := &fakeRunner{refreshErr: errors.New("store down")}
	s := newScheduler(t, r, Options{})
	ctx := context.Background()

	r.panicOnce.Store(true)
	err := s.RunNow(ctx, JobRefresh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	err = s.RunNow(ctx, JobRefresh)
	assert.EqualError(t, err, "store down")

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, JobRefresh, status[0].Job)
	assert.Equal(t, 2, status[0].Runs)
	assert.EqualError(t, status[0].LastErr, "store down")
	assert.False(t, status[0].Running)
}

func TestScheduledJobsKeepRunning(t *testing.T) {
	r := &fakeRunner{refreshErr: errors.New("every refresh fails")}
	s := newScheduler(t, r, Options{RefreshInterval: time.Second, CleanupInterval: time.Second})

	s.Start(context.Background())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		return r.refreshes.Load() >= 2 && r.cleanups.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)

	for _, st := range s.Status() {
		assert.False(t, st.Next.IsZero(), "%s should have a next run", st.Job)
	}
}

func TestStart_InitialRefresh(t *testing.T) {
	r := &fakeRunner{}
	s := newScheduler(t, r, Options{InitialRefresh: true})

	s.Start(context.Background())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return r.refreshes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), r.cleanups.Load())
}

func TestStop_CancelsJobContext(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newScheduler(t, r, Options{InitialRefresh: true})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-r.started

	// the running refresh sees its context cancelled and returns
	cancel()
	require.Eventually(t, func() bool { return !s.Status()[0].Running }, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, s.Status()[0].LastErr, context.Canceled)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	assert.NoError(t, s.Stop(stopCtx))
}
