package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRequestHonorsMinuteWindow(t *testing.T) {
	rl := NewRateLimiter(3, 0, 0, true)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowRequest())
	}
	assert.False(t, rl.AllowRequest())

	stats := rl.GetStats()
	assert.Equal(t, 3, stats.Minute.Used)
	assert.Equal(t, 0, stats.Minute.Remaining)
	assert.Equal(t, 3, stats.Day.Used)
	assert.Equal(t, 0, stats.Day.Limit)

	clock = clock.Add(61 * time.Second)
	assert.True(t, rl.AllowRequest())
}

func TestAllowRequestHonorsHourWindow(t *testing.T) {
	rl := NewRateLimiter(100, 2, 0, true)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.AllowRequest())
	clock = clock.Add(2 * time.Minute)
	assert.True(t, rl.AllowRequest())
	clock = clock.Add(2 * time.Minute)
	assert.False(t, rl.AllowRequest())
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, false)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.AllowRequest())
	}
	assert.False(t, rl.GetStats().Enabled)
}

func TestWaitReturnsWhenContextDone(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, true)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReset(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, true)
	assert.True(t, rl.AllowRequest())
	assert.False(t, rl.AllowRequest())
	rl.Reset()
	assert.True(t, rl.AllowRequest())
}
