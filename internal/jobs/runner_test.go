package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

func TestRegisterValidation(t *testing.T) {
	r := NewRunner(nil, RunnerConfig{})
	noop := func(context.Context, time.Time) (Report, error) { return Report{}, nil }

	assert.ErrorIs(t, r.Register(Job{Name: "", Schedule: "0 * * * *", Handler: noop}), apperr.ErrValidation)
	assert.ErrorIs(t, r.Register(Job{Name: "a", Schedule: "0 * * * *"}), apperr.ErrValidation)
	assert.ErrorIs(t, r.Register(Job{Name: "a", Schedule: "every hour", Handler: noop}), apperr.ErrValidation)

	require.NoError(t, r.Register(Job{Name: "a", Schedule: "0 * * * *", Handler: noop}))
	assert.ErrorIs(t, r.Register(Job{Name: "a", Schedule: "0 9 * * *", Handler: noop}), apperr.ErrConflict)
}

func TestRunReturnsReport(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	r := NewRunner(nil, RunnerConfig{Location: loc, Timeout: time.Minute, Now: func() time.Time { return now }})

	var seen time.Time
	var hadDeadline bool
	require.NoError(t, r.Register(Job{Name: "count", Schedule: "0 9 * * *", Handler: func(ctx context.Context, at time.Time) (Report, error) {
		seen = at
		_, hadDeadline = ctx.Deadline()
		return Report{Candidates: 3, Succeeded: 2, Skipped: 1}, nil
	}}))

	report, err := r.Run(context.Background(), "count")
	require.NoError(t, err)
	assert.Equal(t, "count", report.Job)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.StartedAt.Equal(now))
	assert.Equal(t, loc, seen.Location())
	assert.True(t, hadDeadline)
}

func TestRunPropagatesHandlerError(t *testing.T) {
	r := NewRunner(nil, RunnerConfig{})
	boom := errors.New("boom")
	require.NoError(t, r.Register(Job{Name: "bad", Schedule: "0 * * * *", Handler: func(context.Context, time.Time) (Report, error) {
		return Report{Candidates: 1, Failed: 1}, boom
	}}))

	report, err := r.Run(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed)

	_, err = r.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJobsAndLifecycle(t *testing.T) {
	r := NewRunner(nil, RunnerConfig{})
	var calls int32
	handler := func(context.Context, time.Time) (Report, error) {
		atomic.AddInt32(&calls, 1)
		return Report{}, nil
	}
	require.NoError(t, r.Register(Job{Name: "b", Schedule: "0 * * * *", Handler: handler}))
	require.NoError(t, r.Register(Job{Name: "a", Schedule: "30 3 * * *", Handler: handler}))

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()))

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "30 3 * * *", jobs[0].Schedule)
	assert.False(t, jobs[0].NextRun.IsZero())

	r.StopAll()
	r.StopAll()
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestDescribeCronExpression(t *testing.T) {
	assert.Equal(t, "Every hour", DescribeCronExpression("0 * * * *"))
	assert.Equal(t, "15 4 * * *", DescribeCronExpression("15 4 * * *"))
	assert.NoError(t, ValidateCronExpression("30 3 * * *"))
	assert.Error(t, ValidateCronExpression("30 3 * *"))
}
