package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.True(t, p.ShouldRetry(0, 3))
	assert.True(t, p.ShouldRetry(2, 3))
	assert.False(t, p.ShouldRetry(3, 3))
	assert.False(t, p.ShouldRetry(4, 3))
	assert.False(t, p.ShouldRetry(0, 0))
}

func TestRetryPolicy_DefaultHasNoDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, time.Duration(0), p.Delay(attempt))
	}
}

func TestRetryPolicy_ExponentialBackoff(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
	}

	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	// Capped by MaxDelay from here on.
	assert.Equal(t, time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(6))
}

func TestRetryPolicy_MultiplierFloor(t *testing.T) {
	p := RetryPolicy{InitialDelay: 10 * time.Millisecond, Multiplier: 0.5}
	// A multiplier below 1 falls back to doubling.
	assert.Equal(t, 20*time.Millisecond, p.Delay(2))
}

func TestGate_AdmitAndRelease(t *testing.T) {
	g := NewGate(2)

	assert.True(t, g.Admit())
	assert.True(t, g.Admit())
	assert.False(t, g.Admit(), "full gate must reject, not queue")

	g.Release()
	assert.True(t, g.Admit())
	assert.Equal(t, 2, g.Capacity())
}

func TestGate_DefaultCapacity(t *testing.T) {
	g := NewGate(0)
	assert.Equal(t, DefaultMaxConcurrentWorkflows, g.Capacity())
}
