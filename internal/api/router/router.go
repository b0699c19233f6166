package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/makhandasmiles/clinic-api/internal/availability"
	"github.com/makhandasmiles/clinic-api/internal/booking"
	httpmiddleware "github.com/makhandasmiles/clinic-api/internal/http/middleware"
	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/reminders"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	AvailabilityHandler  *availability.Handler
	BookingHandler       *booking.Handler
	JobsHandler          *jobs.Handler
	RemindersHandler     *reminders.Handler
	NotificationsHandler *notifications.Handler
	MetricsHandler       http.Handler
	Database             Pinger

	CronSecret         string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	// BookingRateLimit is the per-IP requests per minute on public booking.
	BookingRateLimit int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.Database))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.AvailabilityHandler != nil {
			api.Route("/availability", cfg.AvailabilityHandler.RegisterRoutes)
		}
		if cfg.BookingHandler != nil {
			api.Route("/appointments", func(r chi.Router) {
				if cfg.BookingRateLimit > 0 {
					r.Use(httpmiddleware.RateLimit(cfg.BookingRateLimit))
				}
				cfg.BookingHandler.RegisterPublicRoutes(r)
			})
		}
		if cfg.NotificationsHandler != nil {
			api.Route("/patients/{patientID}/notifications", cfg.NotificationsHandler.RegisterPatientRoutes)
		}
		if cfg.JobsHandler != nil {
			api.Route("/cron", func(r chi.Router) {
				r.Use(httpmiddleware.CronSecret(cfg.CronSecret, cfg.Logger))
				cfg.JobsHandler.RegisterRoutes(r)
			})
		}

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			if cfg.BookingHandler != nil {
				admin.Route("/appointments", cfg.BookingHandler.RegisterAdminRoutes)
			}
			if cfg.RemindersHandler != nil {
				admin.Route("/reminders", cfg.RemindersHandler.RegisterRoutes)
			}
			if cfg.NotificationsHandler != nil {
				admin.Route("/notifications", cfg.NotificationsHandler.RegisterAdminRoutes)
			}
		})
	})

	return otelhttp.NewHandler(r, "clinic-api",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/health" && req.URL.Path != "/metrics"
		}),
	)
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
