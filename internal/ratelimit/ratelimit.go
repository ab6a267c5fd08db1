// Package ratelimit keeps outbound MLS feed traffic inside the provider's
// per-minute, per-hour and per-day request quotas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how often Wait re-checks a saturated window.
const pollInterval = 250 * time.Millisecond

// window is a sliding log of request times over span. A zero limit is
// unbounded.
type window struct {
	span  time.Duration
	limit int
	hits  []time.Time
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	// hits are appended in time order, so the first one inside the span
	// ends the scan.
	for i, t := range w.hits {
		if t.After(cutoff) {
			w.hits = w.hits[i:]
			return
		}
	}
	w.hits = w.hits[:0]
}

func (w *window) full() bool {
	return w.limit > 0 && len(w.hits) >= w.limit
}

func (w *window) stats() WindowStats {
	s := WindowStats{Used: len(w.hits), Limit: w.limit}
	if w.limit > 0 && s.Used < w.limit {
		s.Remaining = w.limit - s.Used
	}
	return s
}

// RateLimiter enforces sliding-window request budgets against the MLS feed.
type RateLimiter struct {
	enabled bool
	now     func() time.Time

	mu                sync.Mutex
	minute, hour, day window
}

// NewRateLimiter creates a limiter. Zero hour or day limits are unbounded.
func NewRateLimiter(requestsPerMinute, requestsPerHour, requestsPerDay int, enabled bool) *RateLimiter {
	return &RateLimiter{
		enabled: enabled,
		now:     time.Now,
		minute:  window{span: time.Minute, limit: requestsPerMinute},
		hour:    window{span: time.Hour, limit: requestsPerHour},
		day:     window{span: 24 * time.Hour, limit: requestsPerDay},
	}
}

func (rl *RateLimiter) windows() []*window {
	return []*window{&rl.minute, &rl.hour, &rl.day}
}

// AllowRequest records a request and returns true when every window has room.
func (rl *RateLimiter) AllowRequest() bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, w := range rl.windows() {
		w.prune(now)
		if w.full() {
			return false
		}
	}
	for _, w := range rl.windows() {
		w.hits = append(w.hits, now)
	}
	return true
}

// Wait blocks until a request is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.AllowRequest() {
			return nil
		}
		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WindowStats is the usage of one window.
type WindowStats struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Stats is a snapshot of all windows.
type Stats struct {
	Enabled bool        `json:"enabled"`
	Minute  WindowStats `json:"minute"`
	Hour    WindowStats `json:"hour"`
	Day     WindowStats `json:"day"`
}

// GetStats returns current usage per window.
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, w := range rl.windows() {
		w.prune(now)
	}
	return Stats{
		Enabled: true,
		Minute:  rl.minute.stats(),
		Hour:    rl.hour.stats(),
		Day:     rl.day.stats(),
	}
}

// Reset forgets all recorded requests.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, w := range rl.windows() {
		w.hits = nil
	}
}
