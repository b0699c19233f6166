// Command cron-lambda runs one scheduled job per invocation. EventBridge
// schedules send {"job": "<name>"}.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/makhandasmiles/clinic-api/cmd/mainconfig"
	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/observability/tracing"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

type jobEvent struct {
	Job string `json:"job"`
}

type jobResponse struct {
	Job     string `json:"job"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

type jobRunner interface {
	Run(ctx context.Context, name string) (any, error)
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "clinic-cron",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
		Environment:  cfg.Env,
	})
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	rt, err := mainconfig.BuildRuntime(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}

	lambda.StartWithOptions(func(ctx context.Context, evt jobEvent) (jobResponse, error) {
		return handle(ctx, rt.Services.Runner, evt, logger)
	}, lambda.WithEnableSIGTERM(func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
		rt.Close()
	}))
}

func handle(ctx context.Context, runner jobRunner, evt jobEvent, logger *logging.Logger) (jobResponse, error) {
	name := strings.TrimSpace(evt.Job)
	if name == "" {
		return jobResponse{}, errors.New("cron-lambda: event is missing \"job\"")
	}

	result, err := runner.Run(ctx, name)
	switch {
	case errors.Is(err, jobs.ErrBusy):
		logger.Info("job skipped, already running", "job", name)
		return jobResponse{Job: name, Success: true, Skipped: true, Message: "Job already running"}, nil
	case err != nil:
		logger.Error("job failed", "job", name, "error", err)
		return jobResponse{}, fmt.Errorf("cron-lambda: %s: %w", name, err)
	}
	return jobResponse{Job: name, Success: true, Result: result}, nil
}
