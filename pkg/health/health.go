// Package health implements Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in the background. Consecutive-failure
// and consecutive-success thresholds keep a single flaky probe from flipping
// the reported state back and forth.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// check is one registered probe with its runtime state.
//
// The tick goroutine is the only writer of the streak counters, so they are
// plain ints. state and lastErr are also read from HTTP handler goroutines
// and go through atomics.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	state   atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	okStreak   int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	// Optimistic until the first probe says otherwise.
	c.state.Store(true)
	return c
}

// probe runs the check once and applies the thresholds. Single-goroutine
// only.
func (c *check) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.okStreak = 0
		if c.failStreak++; c.failStreak >= defaultFailureThreshold {
			c.state.Store(false)
		}
		return
	}
	c.failStreak = 0
	if c.okStreak++; c.okStreak >= defaultSuccessThreshold {
		c.state.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.state.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health tracks a service's probes. The zero readiness state is not-ready;
// call SetReady(true) after startup completes and SetReady(false) when
// draining.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Health with no checks registered.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe answering "is this process functional",
// such as a goroutine-leak or GC-pause check.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a probe answering "can this process serve
// traffic", such as a database ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches one background goroutine per registered check, probing at
// the given interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	all := make([]*check, 0, len(h.liveness)+len(h.readiness))
	all = append(all, h.liveness...)
	all = append(all, h.readiness...)
	h.mu.Unlock()

	for _, c := range all {
		go func(c *check) {
			c.probe(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.probe(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness check
// passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.readiness {
		if _, failed := c.failure(); failed {
			return false
		}
	}
	return true
}

type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the liveness probe: 200 when every liveness check
// passes, 503 with the failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.RUnlock()

	writeReport(w, failures(checks))
}

// ReadyEndpoint serves the readiness probe: 200 when the manual gate is open
// and every readiness check passes, 503 with details otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.RUnlock()

	failed := failures(checks)
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeReport(w, failed)
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if msg, failed := c.failure(); failed {
			out[c.name] = msg
		}
	}
	return out
}

func writeReport(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		report.Status = "unhealthy"
		report.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
