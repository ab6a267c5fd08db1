package mls

import (
	"log"
	"net/http"
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// authTripAfter is how many consecutive 401/403 responses open the breaker
// regardless of the configured threshold.
const authTripAfter = 2

// CircuitBreaker stops calls to the feed after repeated failures. Once the
// reset timeout has passed a single probe is let through; its outcome closes
// or reopens the breaker.
type CircuitBreaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       breakerState
	consecutive int
	failures    int
	total       int
	openedAt    time.Time
	probing     bool
	probeAt     time.Time
}

// NewCircuitBreaker creates a closed breaker. A non-positive threshold
// defaults to 5.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &CircuitBreaker{
		threshold:    failureThreshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// CanProceed reports whether a request may be sent now.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.state = breakerHalfOpen
		log.Printf("[MLS] Circuit breaker half-open after %v", cb.resetTimeout)
	}

	// A probe that never reported back (cancelled request) expires.
	if cb.probing && cb.now().Sub(cb.probeAt) < cb.resetTimeout {
		return false
	}
	cb.probing = true
	cb.probeAt = cb.now()
	return true
}

// RecordSuccess closes the breaker and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.total++
	cb.consecutive = 0
	cb.probing = false
	if cb.state != breakerClosed {
		log.Printf("[MLS] Circuit breaker closed")
		cb.state = breakerClosed
	}
}

// RecordFailure counts a failed request. statusCode is 0 for network errors.
func (cb *CircuitBreaker) RecordFailure(statusCode int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.total++
	cb.failures++
	cb.consecutive++

	switch {
	case cb.state == breakerHalfOpen:
		cb.trip("probe failed with status %d", statusCode)
	case isAuthFailure(statusCode) && cb.consecutive >= authTripAfter:
		cb.trip("%d consecutive auth failures (%d)", cb.consecutive, statusCode)
	case cb.consecutive >= cb.threshold:
		cb.trip("%d consecutive failures (last status %d)", cb.consecutive, statusCode)
	}
}

func (cb *CircuitBreaker) trip(format string, args ...interface{}) {
	cb.state = breakerOpen
	cb.openedAt = cb.now()
	cb.probing = false
	log.Printf("[MLS] Circuit breaker open: "+format+", retry after %v", append(args, cb.resetTimeout)...)
}

func isAuthFailure(statusCode int) bool {
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
}

// BreakerStatus is a snapshot of the breaker for the admin stats endpoint.
type BreakerStatus struct {
	State    string `json:"state"`
	Open     bool   `json:"open"`
	Failures int    `json:"failures"`
	Total    int    `json:"total"`
}

// GetStatus returns the current breaker state and counters.
func (cb *CircuitBreaker) GetStatus() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStatus{
		State:    cb.state.String(),
		Open:     cb.state == breakerOpen,
		Failures: cb.failures,
		Total:    cb.total,
	}
}
