package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds how long a single health probe may hold the request.
const checkTimeout = 5 * time.Second

// HTTPHandler returns an HTTP handler for the health check endpoint
func (hc *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		response := hc.Check(ctx)

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusHealthy, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}
