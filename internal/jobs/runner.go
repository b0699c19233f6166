// Package jobs runs the scheduled maintenance tasks (reminder scans and
// digests) under a shared run lock, whichever trigger fires them: the cron
// HTTP endpoints, the scheduler Lambda or clinicctl.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/internal/observability/metrics"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.jobs")

// Job names, shared by the HTTP paths, the Lambda event and the CLI.
const (
	ScheduledReminders = "scheduled-reminders"
	SendReminders      = "send-reminders"
	WeeklyReport       = "weekly-report"
	DailySummary       = "daily-summary"
)

var (
	// ErrUnknownJob is returned for a name that was never registered.
	ErrUnknownJob = errors.New("jobs: unknown job")
	// ErrBusy is returned when another invocation holds the job's run lock.
	ErrBusy = errors.New("jobs: job already running")
)

// Func executes one run and returns the in-band result payload.
type Func func(ctx context.Context) (any, error)

// Job is a named task plus the message reported when it fails.
type Job struct {
	Name           string
	FailureMessage string
	Run            Func
}

// itemCounter is implemented by results that report per-item outcomes.
type itemCounter interface {
	ItemCounts() map[string]int
}

// Runner dispatches jobs by name.
type Runner struct {
	jobs    map[string]Job
	locker  locks.Locker
	lockTTL time.Duration
	metrics *metrics.JobMetrics
	logger  *logging.Logger
}

// NewRunner creates a runner. A nil locker runs jobs without mutual exclusion.
func NewRunner(locker locks.Locker, lockTTL time.Duration, m *metrics.JobMetrics, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Runner{jobs: make(map[string]Job), locker: locker, lockTTL: lockTTL, metrics: m, logger: logger}
}

// Register adds or replaces a job.
func (r *Runner) Register(job Job) {
	if job.FailureMessage == "" {
		job.FailureMessage = "Failed to run " + job.Name
	}
	r.jobs[job.Name] = job
}

// Lookup returns the registered job.
func (r *Runner) Lookup(name string) (Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

// Names lists registered jobs in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named job while holding "jobs:<name>". It returns ErrBusy
// without running when another invocation holds the lock.
func (r *Runner) Run(ctx context.Context, name string) (any, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	ctx, span := tracer.Start(ctx, "jobs.run")
	defer span.End()
	span.SetAttributes(attribute.String("job.name", name))

	release, err := r.acquire(ctx, name)
	if errors.Is(err, ErrBusy) {
		span.SetAttributes(attribute.Bool("job.skipped", true))
		r.metrics.ObserveRun(name, "skipped", 0)
		r.logger.Info("jobs: run skipped, lock held", "job", name)
		return nil, err
	}
	defer release()

	started := time.Now()
	result, err := job.Run(ctx)
	elapsed := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.ObserveRun(name, "error", elapsed.Seconds())
		r.logger.Error("jobs: run failed", "job", name, "duration", elapsed, "error", err)
		return nil, err
	}

	r.metrics.ObserveRun(name, "ok", elapsed.Seconds())
	if counter, ok := result.(itemCounter); ok {
		for outcome, n := range counter.ItemCounts() {
			r.metrics.ObserveItems(name, outcome, n)
			span.SetAttributes(attribute.Int("job.items."+outcome, n))
		}
	}
	r.logger.Info("jobs: run complete", "job", name, "duration", elapsed)
	return result, nil
}

// acquire takes the run lock. When the lock backend itself is unreachable
// the run proceeds; the stores' conditional updates still stop double marks.
func (r *Runner) acquire(ctx context.Context, name string) (func(), error) {
	noop := func() {}
	if r.locker == nil {
		return noop, nil
	}
	key := "jobs:" + name
	token, ok, err := r.locker.TryLock(ctx, key, r.lockTTL)
	if err != nil {
		r.logger.Warn("jobs: lock unavailable, running unlocked", "job", name, "error", err)
		return noop, nil
	}
	if !ok {
		return noop, ErrBusy
	}
	return func() {
		// The request context may already be cancelled; release regardless.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.locker.Unlock(unlockCtx, key, token); err != nil {
			r.logger.Warn("jobs: unlock failed", "job", name, "error", err)
		}
	}, nil
}
