package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type counterState struct {
	Runs int
}

type funcJob struct {
	name string
	run  func(ctx context.Context, s *counterState) error
}

func (j funcJob) Name() string { return j.name }
func (j funcJob) Run(ctx context.Context, s *counterState) error {
	return j.run(ctx, s)
}

func newScheduler(t *testing.T, reg prometheus.Registerer) *Scheduler {
	t.Helper()
	s, err := New(Config{MaxTickDuration: time.Second, Registerer: reg})
	require.NoError(t, err)
	return s
}

func TestNewRequiresMaxTickDuration(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	s := newScheduler(t, nil)
	job := funcJob{name: "a", run: func(context.Context, *counterState) error { return nil }}

	_, err := Register(s, job, counterState{}, Schedule{})
	require.Error(t, err, "zero interval must be rejected")

	_, err = Register(s, job, counterState{}, Schedule{Interval: time.Minute})
	require.NoError(t, err)
	_, err = Register(s, job, counterState{}, Schedule{Interval: time.Minute})
	require.Error(t, err, "duplicate name must be rejected")
}

func TestTickMutatesStateAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newScheduler(t, reg)
	fail := false
	h, err := Register(s, funcJob{name: "count", run: func(_ context.Context, st *counterState) error {
		st.Runs++
		if fail {
			return errors.New("boom")
		}
		return nil
	}}, counterState{}, Schedule{Interval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, h.Tick(context.Background()))
	fail = true
	require.Error(t, h.Tick(context.Background()))

	assert.Equal(t, 2, h.Snapshot().Runs)
	m := s.Metrics()
	assert.InDelta(t, 1, testutil.ToFloat64(m.TicksTotal.WithLabelValues("count", outcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TicksTotal.WithLabelValues("count", outcomeFailure)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickDuration))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess.WithLabelValues("count")), float64(0))
}

func TestTickRecoversPanics(t *testing.T) {
	s := newScheduler(t, nil)
	h, err := Register(s, funcJob{name: "panics", run: func(context.Context, *counterState) error {
		panic("bad state")
	}}, counterState{}, Schedule{Interval: time.Hour})
	require.NoError(t, err)

	err = h.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
}

func TestTickAppliesMaxDuration(t *testing.T) {
	s, err := New(Config{MaxTickDuration: 20 * time.Millisecond})
	require.NoError(t, err)
	h, err := Register(s, funcJob{name: "slow", run: func(ctx context.Context, _ *counterState) error {
		<-ctx.Done()
		return ctx.Err()
	}}, counterState{}, Schedule{Interval: time.Hour})
	require.NoError(t, err)

	err = h.Tick(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newScheduler(t, reg)
	second := newScheduler(t, reg)
	assert.Same(t, first.Metrics().TicksTotal, second.Metrics().TicksTotal)
}

func TestStartRunsJobsUntilStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newScheduler(t, nil)
	var runs atomic.Int32
	h, err := Register(s, funcJob{name: "loop", run: func(_ context.Context, st *counterState) error {
		st.Runs++
		runs.Add(1)
		return errors.New("failures do not stop the loop")
	}}, counterState{}, Schedule{Interval: 5 * time.Millisecond, RunImmediately: true})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "second start must fail")
	_, err = Register(s, funcJob{name: "late"}, counterState{}, Schedule{Interval: time.Second})
	require.Error(t, err, "register after start must fail")

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no ticks after Stop")
	assert.Equal(t, int(stopped), h.Snapshot().Runs)
}

func TestStopWithoutStart(t *testing.T) {
	s := newScheduler(t, nil)
	require.NoError(t, s.Stop())
}
