// Package health provides named component health checks and their HTTP
// endpoints for the license server.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check result for a specific component
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func(ctx context.Context) Check

// Checker manages health checks for the application
type Checker struct {
	checks    map[string]CheckFunc
	startTime time.Time
	mu        sync.RWMutex
}

// Response represents the overall health response
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
	}
}

// RegisterCheck registers a health check
func (hc *Checker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Check performs all registered health checks
func (hc *Checker) Check(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
		Uptime:    time.Since(hc.startTime).Seconds(),
	}

	for name, checkFunc := range hc.checks {
		start := time.Now()
		check := checkFunc(ctx)
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check

		// Worst status wins
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}

// PingFunc adapts a store/database ping into a health check.
func PingFunc(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: name, Status: StatusHealthy}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}
