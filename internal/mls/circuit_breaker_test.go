package mls

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func breakerAt(threshold int, clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(threshold, time.Minute)
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := breakerAt(3, &clock)

	cb.RecordFailure(http.StatusBadGateway)
	cb.RecordFailure(0)
	assert.True(t, cb.CanProceed())
	cb.RecordFailure(http.StatusServiceUnavailable)

	assert.False(t, cb.CanProceed())
	status := cb.GetStatus()
	assert.Equal(t, "open", status.State)
	assert.Equal(t, 3, status.Failures)
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := breakerAt(2, &clock)

	cb.RecordFailure(http.StatusInternalServerError)
	cb.RecordSuccess()
	cb.RecordFailure(http.StatusInternalServerError)
	assert.True(t, cb.CanProceed())
}

func TestBreakerTripsEarlyOnAuthFailures(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := breakerAt(10, &clock)

	cb.RecordFailure(http.StatusUnauthorized)
	assert.True(t, cb.CanProceed())
	cb.RecordFailure(http.StatusUnauthorized)
	assert.False(t, cb.CanProceed())
}

func TestBreakerHalfOpenAllowsSingleProbe(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := breakerAt(1, &clock)
	cb.RecordFailure(http.StatusBadGateway)

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
	assert.Equal(t, "half-open", cb.GetStatus().State)
	assert.False(t, cb.CanProceed(), "only one probe at a time")

	cb.RecordFailure(http.StatusBadGateway)
	assert.Equal(t, "open", cb.GetStatus().State)
	assert.False(t, cb.CanProceed())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
	cb.RecordSuccess()
	assert.Equal(t, "closed", cb.GetStatus().State)
	assert.True(t, cb.CanProceed())
	assert.True(t, cb.CanProceed())
}

func TestBreakerAbandonedProbeExpires(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := breakerAt(1, &clock)
	cb.RecordFailure(0)

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
}
