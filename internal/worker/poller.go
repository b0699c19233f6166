// Package worker runs scheduled jobs in-process on a fixed interval, for
// deployments without an external scheduler.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

type jobRunner interface {
	Run(ctx context.Context, name string) (any, error)
}

// Poller triggers one named job every interval until its context ends.
type Poller struct {
	runner   jobRunner
	job      string
	interval time.Duration
	logger   *logging.Logger
}

func NewPoller(runner jobRunner, job string, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{
		runner:   runner,
		job:      job,
		interval: 5 * time.Minute,
		logger:   logger,
	}
}

func (p *Poller) WithInterval(d time.Duration) *Poller {
	if d > 0 {
		p.interval = d
	}
	return p
}

// Run ticks immediately and then every interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.runner == nil {
		return
	}
	_, err := p.runner.Run(ctx, p.job)
	switch {
	case err == nil, errors.Is(err, jobs.ErrBusy):
	case errors.Is(err, context.Canceled):
	default:
		p.logger.Error("poller: job failed", "job", p.job, "error", err)
	}
}
