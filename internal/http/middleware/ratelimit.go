package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/makhandasmiles/clinic-api/internal/http/respond"
)

// RateLimit allows perMinute requests per client IP and answers the rest with
// 429. Client IP honours X-Real-IP / X-Forwarded-For as set by the load balancer.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 10
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respond.Error(w, http.StatusTooManyRequests, "Too many booking attempts, please try again shortly")
		}),
	)
}
