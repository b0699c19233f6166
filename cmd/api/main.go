package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makhandasmiles/clinic-api/cmd/mainconfig"
	"github.com/makhandasmiles/clinic-api/internal/api/router"
	"github.com/makhandasmiles/clinic-api/internal/app/bootstrap"
	"github.com/makhandasmiles/clinic-api/internal/availability"
	"github.com/makhandasmiles/clinic-api/internal/booking"
	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/observability/tracing"
	"github.com/makhandasmiles/clinic-api/internal/reminders"
	"github.com/makhandasmiles/clinic-api/internal/worker"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "clinic-api",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
		Environment:  cfg.Env,
	})
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	metricsHandler, registry := setupMetrics()
	rt, err := mainconfig.BuildRuntime(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	r := router.New(routerConfig(cfg, rt.Services, metricsHandler, rt.Pool, logger))

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if cfg.ReminderPollInterval > 0 {
		logger.Info("in-process reminder polling enabled", "interval", cfg.ReminderPollInterval)
		go worker.NewPoller(rt.Services.Runner, jobs.SendReminders, logger).
			WithInterval(cfg.ReminderPollInterval).
			Run(pollCtx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := rt.Services.Booking.Drain(shutdownCtx); err != nil {
		logger.Warn("booking side effects still running at shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics creates a dedicated registry with the Go and process
// collectors and the handler serving it.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}

func routerConfig(cfg *appconfig.Config, svc *bootstrap.Services, metricsHandler http.Handler, db router.Pinger, logger *logging.Logger) *router.Config {
	return &router.Config{
		Logger:               logger,
		AvailabilityHandler:  availability.NewHandler(svc.Availability, svc.Calendar, logger),
		BookingHandler:       booking.NewHandler(svc.Booking, svc.Calendar, logger),
		JobsHandler:          jobs.NewHandler(svc.Runner, logger),
		RemindersHandler:     reminders.NewHandler(svc.Reminders, logger),
		NotificationsHandler: notifications.NewHandler(svc.Notifications, logger),
		MetricsHandler:       metricsHandler,
		Database:             db,
		CronSecret:           cfg.CronSecret,
		AdminJWTSecret:       cfg.AdminJWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		BookingRateLimit:     cfg.BookingRateLimit,
	}
}
