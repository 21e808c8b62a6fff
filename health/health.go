// Package health serves liveness, readiness and aggregate health endpoints
// backed by named check functions.
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
)

// Check statuses, ordered from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Result is the outcome of one check.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check performs a health check.
type Check func(ctx context.Context) Result

// Checker runs registered checks for the /healthz and /readyz endpoints.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	started bool
}

// NewChecker creates a Checker with no checks.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// RegisterCheck adds or replaces a named check.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetStarted marks the process as ready to serve, or not.
func (c *Checker) SetStarted(started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = started
}

// RegisterRoutes registers the health endpoints on mux.
func (c *Checker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", c.HealthHandler())
	mux.HandleFunc("GET /readyz", c.ReadyHandler())
	mux.HandleFunc("GET /livez", c.LiveHandler())
}

func (c *Checker) snapshot() (map[string]Check, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.checks), c.started
}

// Run executes every check and returns the overall status with the
// individual results.
func (c *Checker) Run(ctx context.Context) (string, map[string]Result) {
	checks, _ := c.snapshot()
	overall := StatusHealthy
	results := make(map[string]Result, len(checks))
	for name, check := range checks {
		res := check(ctx)
		results[name] = res
		switch {
		case res.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case res.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}
	return overall, results
}

// HealthHandler reports every check. Only an unhealthy check turns the
// response into a 503.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall, results := c.Run(r.Context())
		status := http.StatusOK
		if overall == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"status": overall, "checks": results})
	}
}

// ReadyHandler returns 200 only once started and while no check is
// unhealthy. A degraded check still counts as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, started := c.snapshot(); !started {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		if overall, _ := c.Run(r.Context()); overall == StatusUnhealthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// LiveHandler always reports the process alive.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
