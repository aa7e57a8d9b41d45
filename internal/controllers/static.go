package controllers

import (
	"context"
	"log"
	"net/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthCheck returns a simple health status for monitoring.
func HealthCheck(ping Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				log.Printf("health check failed: %v", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// RedirectTo sends the browser to path.
func RedirectTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusFound)
	}
}
