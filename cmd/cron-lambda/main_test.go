package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

func newRunner(t *testing.T, locker locks.Locker, run jobs.Func) *jobs.Runner {
	t.Helper()
	runner := jobs.NewRunner(locker, time.Minute, nil, logging.Discard())
	runner.Register(jobs.Job{Name: jobs.SendReminders, Run: run})
	return runner
}

func TestHandleRequiresJobName(t *testing.T) {
	runner := newRunner(t, locks.NewLocalLocker(), func(context.Context) (any, error) { return nil, nil })
	_, err := handle(context.Background(), runner, jobEvent{Job: "  "}, logging.Discard())
	assert.Error(t, err)
}

func TestHandleRunsJob(t *testing.T) {
	runner := newRunner(t, locks.NewLocalLocker(), func(context.Context) (any, error) {
		return map[string]int{"sent": 2}, nil
	})

	resp, err := handle(context.Background(), runner, jobEvent{Job: jobs.SendReminders}, logging.Discard())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Skipped)
	assert.Equal(t, map[string]int{"sent": 2}, resp.Result)
}

func TestHandleUnknownJobFails(t *testing.T) {
	runner := newRunner(t, locks.NewLocalLocker(), func(context.Context) (any, error) { return nil, nil })
	_, err := handle(context.Background(), runner, jobEvent{Job: "vacuum"}, logging.Discard())
	assert.ErrorIs(t, err, jobs.ErrUnknownJob)
}

func TestHandleSkipsWhenLockHeld(t *testing.T) {
	locker := locks.NewLocalLocker()
	runner := newRunner(t, locker, func(context.Context) (any, error) { return nil, nil })

	_, ok, err := locker.TryLock(context.Background(), "jobs:"+jobs.SendReminders, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	resp, err := handle(context.Background(), runner, jobEvent{Job: jobs.SendReminders}, logging.Discard())
	require.NoError(t, err)
	assert.True(t, resp.Skipped)
	assert.Equal(t, "Job already running", resp.Message)
}

func TestHandlePropagatesJobError(t *testing.T) {
	runner := newRunner(t, locks.NewLocalLocker(), func(context.Context) (any, error) {
		return nil, errors.New("smtp down")
	})
	_, err := handle(context.Background(), runner, jobEvent{Job: jobs.SendReminders}, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}
