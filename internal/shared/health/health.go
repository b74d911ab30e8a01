// Package health exposes the liveness endpoint each service carries
// independently of the core.
package health

import (
	"encoding/json"
	"net/http"
)

// Check probes one dependency and returns an error when it is unhealthy.
type Check func() error

// Handler returns a GET /health handler running the named checks. The
// response reports per-dependency state and 503 when any check fails.
func Handler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		results := make(map[string]string, len(checks))

		for name, check := range checks {
			if err := check(); err != nil {
				results[name] = "unhealthy: " + err.Error()
				status = "unhealthy"
				continue
			}
			results[name] = "healthy"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"checks": results,
		})
	}
}
