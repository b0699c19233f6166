package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

func TestRateLimitPerClientIP(t *testing.T) {
	called := false
	h := RateLimit(2)(okHandler(&called))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("41.0.0.1"))
	assert.Equal(t, http.StatusOK, send("41.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("41.0.0.1"))
	assert.Equal(t, http.StatusOK, send("41.0.0.2"))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"path":"/api/appointments"`)
	assert.Contains(t, out, `"request_id"`)
}
