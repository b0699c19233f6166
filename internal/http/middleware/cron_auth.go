package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/makhandasmiles/clinic-api/internal/http/respond"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// CronSecret guards the scheduled-job endpoints with "Authorization: Bearer <secret>".
// An unset secret rejects every request.
func CronSecret(secret string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.Warn("cron request rejected", "path", r.URL.Path, "remote_ip", r.RemoteAddr, "secret_configured", secret != "")
				respond.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
