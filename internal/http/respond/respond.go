// Package respond writes JSON responses for the HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Failure writes the {"error", "message"} body used by the cron endpoints
// when an upstream dependency fails.
func Failure(w http.ResponseWriter, status int, msg string, err error) {
	detail := "Unknown error"
	if err != nil {
		detail = err.Error()
	}
	JSON(w, status, map[string]string{"error": msg, "message": detail})
}
