package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	return NewScheduler(SchedulerConfig{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		TickInterval: 5 * time.Millisecond,
	})
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler(t)

	err := s.Register(&countingJob{name: "reconcile"}, NewIntervalSchedule(time.Hour))
	require.NoError(t, err)

	err = s.Register(&countingJob{name: "reconcile"}, NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)

	err = s.Register(nil, NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, ErrNilJob)

	err = s.Register(&countingJob{name: "rebuild"}, nil)
	assert.ErrorIs(t, err, ErrNilSchedule)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "reconcile", infos[0].Name)
	assert.Equal(t, "@every 1h0m0s", infos[0].Schedule)
	assert.False(t, infos[0].NextRun.IsZero())
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register(&countingJob{name: "noop"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "fast"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.GreaterOrEqual(t, infos[0].RunCount, int64(2))
	assert.Zero(t, infos[0].FailCount)
	assert.NoError(t, infos[0].LastError)
}

func TestScheduler_RecordsJobFailures(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "flaky", err: assert.AnError}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.GreaterOrEqual(t, infos[0].FailCount, int64(1))
	assert.ErrorIs(t, infos[0].LastError, assert.AnError)
}
