package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makhandasmiles/clinic-api/internal/appointments"
	"github.com/makhandasmiles/clinic-api/internal/availability"
	"github.com/makhandasmiles/clinic-api/internal/booking"
	"github.com/makhandasmiles/clinic-api/internal/clinic"
	httpmiddleware "github.com/makhandasmiles/clinic-api/internal/http/middleware"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/internal/locks"
	"github.com/makhandasmiles/clinic-api/internal/notifications"
	"github.com/makhandasmiles/clinic-api/internal/reminders"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

const (
	testCronSecret  = "cron-secret"
	testAdminSecret = "admin-secret"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := logging.Discard()
	calendar := clinic.NewCalendar(clinic.DefaultTimezone)
	repo := appointments.NewRepository(mock)
	resolver := availability.NewResolver(repo, availability.DefaultWorkingHours, logger)
	writer := booking.NewWriter(booking.Deps{Appointments: repo, Slots: resolver, Calendar: calendar, Logger: logger})

	runner := jobs.NewRunner(locks.NewLocalLocker(), time.Minute, nil, logger)
	runner.Register(jobs.Job{
		Name: jobs.SendReminders,
		Run: func(context.Context) (any, error) {
			return map[string]any{"processed": 0, "sent": 0, "failed": 0}, nil
		},
	})

	registry := prometheus.NewRegistry()
	cfg := &Config{
		Logger:               logger,
		AvailabilityHandler:  availability.NewHandler(resolver, calendar, logger),
		BookingHandler:       booking.NewHandler(writer, calendar, logger),
		JobsHandler:          jobs.NewHandler(runner, logger),
		RemindersHandler:     reminders.NewHandler(reminders.NewStore(mock), logger),
		NotificationsHandler: notifications.NewHandler(notifications.NewStore(mock), logger),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CronSecret:           testCronSecret,
		AdminJWTSecret:       testAdminSecret,
		CORSAllowedOrigins:   []string{"https://makhandasmiles.co.za"},
		BookingRateLimit:     5,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := httpmiddleware.AdminClaims{
		Role: "reception",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return signed
}

func serve(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestRouterHealthReportsDatabaseOutage(t *testing.T) {
	h := newTestRouter(t, func(c *Config) { c.Database = stubPinger{err: errors.New("connection refused")} })
	rec := serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAvailabilityRejectsMalformedDate(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/api/availability/slots?date=10-06-2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterCronRequiresSecret(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := serve(h, http.MethodPost, "/api/cron/send-reminders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/api/cron/send-reminders", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodPost, "/api/cron/send-reminders", "", map[string]string{"Authorization": "Bearer " + testCronSecret})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":0,"sent":0,"failed":0}`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/api/cron/unknown", "", map[string]string{"Authorization": "Bearer " + testCronSecret})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterCronRejectsWhenSecretUnset(t *testing.T) {
	h := newTestRouter(t, func(c *Config) { c.CronSecret = "" })
	rec := serve(h, http.MethodPost, "/api/cron/send-reminders", "", map[string]string{"Authorization": "Bearer "})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	h := newTestRouter(t, nil)

	for _, path := range []string{"/api/admin/reminders", "/api/admin/appointments", "/api/admin/reminders/stats"} {
		rec := serve(h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := serve(h, http.MethodGet, "/api/admin/reminders?status=bogus", "", map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterBookingIsRateLimited(t *testing.T) {
	h := newTestRouter(t, func(c *Config) { c.BookingRateLimit = 2 })
	headers := map[string]string{"X-Real-IP": "198.51.100.7"}

	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodPost, "/api/appointments", "{", headers)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := serve(h, http.MethodPost, "/api/appointments", "{", headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Availability is not behind the booking limiter.
	rec = serve(h, http.MethodGet, "/api/availability/slots?date=bad", "", headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := serve(h, http.MethodOptions, "/api/appointments", "", map[string]string{
		"Origin":                        "https://makhandasmiles.co.za",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, "https://makhandasmiles.co.za", rec.Header().Get("Access-Control-Allow-Origin"))
}
