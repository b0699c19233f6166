package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

type countedResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func (r countedResult) ItemCounts() map[string]int {
	return map[string]int{"sent": r.Sent, "failed": r.Failed}
}

func newRunner(locker locks.Locker) *Runner {
	return NewRunner(locker, time.Minute, metrics.NewJobMetrics(prometheus.NewRegistry()), logging.Discard())
}

func TestRunnerRunsRegisteredJob(t *testing.T) {
	r := newRunner(locks.NewLocalLocker())
	calls := 0
	r.Register(Job{Name: SendReminders, Run: func(context.Context) (any, error) {
		calls++
		return countedResult{Sent: 2}, nil
	}})

	result, err := r.Run(context.Background(), SendReminders)
	require.NoError(t, err)
	assert.Equal(t, countedResult{Sent: 2}, result)

	// The lock is released after the run.
	_, err = r.Run(context.Background(), SendReminders)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunnerUnknownJob(t *testing.T) {
	r := newRunner(nil)
	_, err := r.Run(context.Background(), "vacuum")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunnerSkipsWhenLockHeld(t *testing.T) {
	locker := locks.NewLocalLocker()
	r := newRunner(locker)
	ran := false
	r.Register(Job{Name: ScheduledReminders, Run: func(context.Context) (any, error) {
		ran = true
		return nil, nil
	}})

	_, ok, err := locker.TryLock(context.Background(), "jobs:"+ScheduledReminders, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.Run(context.Background(), ScheduledReminders)
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, ran)
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, errors.New("redis: connection refused")
}

func (brokenLocker) Unlock(context.Context, string, string) error { return nil }

func TestRunnerRunsUnlockedWhenLockBackendDown(t *testing.T) {
	r := newRunner(brokenLocker{})
	r.Register(Job{Name: WeeklyReport, Run: func(context.Context) (any, error) {
		return map[string]bool{"success": true}, nil
	}})

	_, err := r.Run(context.Background(), WeeklyReport)
	assert.NoError(t, err)
}

func TestRunnerNames(t *testing.T) {
	r := newRunner(nil)
	for _, name := range []string{WeeklyReport, DailySummary, SendReminders} {
		r.Register(Job{Name: name, Run: func(context.Context) (any, error) { return nil, nil }})
	}
	assert.Equal(t, []string{DailySummary, SendReminders, WeeklyReport}, r.Names())

	job, ok := r.Lookup(DailySummary)
	require.True(t, ok)
	assert.Equal(t, "Failed to run daily-summary", job.FailureMessage)
}

func cronRouter(r *Runner) http.Handler {
	router := chi.NewRouter()
	NewHandler(r, logging.Discard()).RegisterRoutes(router)
	return router
}

func TestHandlerReturnsResult(t *testing.T) {
	r := newRunner(nil)
	r.Register(Job{Name: SendReminders, Run: func(context.Context) (any, error) {
		return countedResult{Sent: 1, Failed: 1}, nil
	}})

	rec := httptest.NewRecorder()
	cronRouter(r).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send-reminders", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":1,"failed":1}`, rec.Body.String())
}

func TestHandlerMapsFailureTo500(t *testing.T) {
	r := newRunner(nil)
	r.Register(Job{Name: WeeklyReport, FailureMessage: "Failed to generate report", Run: func(context.Context) (any, error) {
		return nil, errors.New("digest: list appointments: timeout")
	}})

	rec := httptest.NewRecorder()
	cronRouter(r).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/weekly-report", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to generate report","message":"digest: list appointments: timeout"}`, rec.Body.String())
}

func TestHandlerReportsSkippedRun(t *testing.T) {
	locker := locks.NewLocalLocker()
	r := newRunner(locker)
	r.Register(Job{Name: DailySummary, Run: func(context.Context) (any, error) { return nil, nil }})
	_, _, _ = locker.TryLock(context.Background(), "jobs:"+DailySummary, time.Minute)

	rec := httptest.NewRecorder()
	cronRouter(r).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/daily-summary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped":true`)
}

func TestHandlerUnknownJob(t *testing.T) {
	rec := httptest.NewRecorder()
	cronRouter(newRunner(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reindex", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
