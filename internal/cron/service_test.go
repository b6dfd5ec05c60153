package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releaseCtx context.Context
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.held = false
	f.releaseCtx = ctx
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline bool
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(ctx context.Context) error {
	j.runs++
	_, j.deadline = ctx.Deadline()
	return j.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunOnceRunsEveryJobAndCombinesFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "invite_reconcile", err: errors.New("telegram down")}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{Logger: quietLogger(), Jobs: []Job{ok, failing, nil, after}, Lock: lock})
	require.NoError(t, err)

	err = service.RunOnce(context.Background())

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.ErrorContains(t, err, "invite_reconcile: telegram down")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, after.runs)
	assert.False(t, lock.held, "lock should be released after the cycle")
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "invite_reconcile"}
	reg := prometheus.NewRegistry()
	m := metrics.NewCronJobMetrics(reg)
	service, err := NewService(ServiceParams{Logger: quietLogger(), Jobs: []Job{job}, Lock: &fakeLock{held: true}, Metrics: m})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	assert.Equal(t, "enroll_cron_cycles_total", mfs[0].GetName())
	assert.Equal(t, "skipped", mfs[0].GetMetric()[0].GetLabel()[0].GetValue())
}

func TestRunOnceReportsLockErrors(t *testing.T) {
	service, err := NewService(ServiceParams{Logger: quietLogger(), Lock: &fakeLock{acquireErr: errors.New("redis down")}})
	require.NoError(t, err)

	assert.ErrorContains(t, service.RunOnce(context.Background()), "redis down")
}

func TestJobTimeoutSetsDeadline(t *testing.T) {
	job := &testJob{name: "invite_reconcile"}
	service, err := NewService(ServiceParams{Logger: quietLogger(), Jobs: []Job{job}, Lock: &fakeLock{}, JobTimeout: time.Minute})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	assert.True(t, job.deadline)
}

func TestReleaseSurvivesCanceledCycle(t *testing.T) {
	lock := &fakeLock{}
	ctx, cancel := context.WithCancel(context.Background())
	job := &cancelingJob{cancel: cancel}
	service, err := NewService(ServiceParams{Logger: quietLogger(), Jobs: []Job{job}, Lock: lock})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(ctx))
	require.NotNil(t, lock.releaseCtx)
	assert.NoError(t, lock.releaseCtx.Err())
}

type cancelingJob struct {
	cancel context.CancelFunc
}

func (c *cancelingJob) Name() string { return "cancels" }

func (c *cancelingJob) Run(context.Context) error {
	c.cancel()
	return nil
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "invite_reconcile"}
	service, err := NewService(ServiceParams{Logger: quietLogger(), Jobs: []Job{job}, Lock: &fakeLock{}, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, service.Run(ctx), context.Canceled)
	assert.Zero(t, job.runs)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: quietLogger()})
	assert.Error(t, err)
}
