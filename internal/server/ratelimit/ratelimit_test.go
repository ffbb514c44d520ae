package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// withClock installs a controllable clock and returns the advance func.
func withClock(l *Limiter, start time.Time) func(time.Duration) {
	current := start
	l.now = func() time.Time { return current }
	return func(d time.Duration) { current = current.Add(d) }
}

func TestLimitPerHour(t *testing.T) {
	l := NewLimiter()
	advance := withClock(l, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	const limit = 5
	for i := 0; i < limit; i++ {
		assert.True(t, l.CheckAndRecord("u1", "upload", limit), "call %d should pass", i+1)
		advance(time.Minute)
	}

	assert.False(t, l.CheckAndRecord("u1", "upload", limit), "call limit+1 within the window is rejected")
}

func TestOldestCallAgesOut(t *testing.T) {
	l := NewLimiter()
	advance := withClock(l, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	assert.True(t, l.CheckAndRecord("u1", "upload", 2))
	advance(10 * time.Minute)
	assert.True(t, l.CheckAndRecord("u1", "upload", 2))
	assert.False(t, l.CheckAndRecord("u1", "upload", 2))

	// 51 more minutes push the first call out of the rolling hour.
	advance(51 * time.Minute)
	assert.True(t, l.CheckAndRecord("u1", "upload", 2))
}

func TestUsersAndOperationsAreIndependent(t *testing.T) {
	l := NewLimiter()

	assert.True(t, l.CheckAndRecord("u1", "upload", 1))
	assert.False(t, l.CheckAndRecord("u1", "upload", 1))

	assert.True(t, l.CheckAndRecord("u1", "download", 1), "other operation has its own window")
	assert.True(t, l.CheckAndRecord("u2", "upload", 1), "other user has their own window")
}

func TestZeroLimitRejectsEverything(t *testing.T) {
	l := NewLimiter()
	assert.False(t, l.CheckAndRecord("u1", "upload", 0))
}

func TestReset(t *testing.T) {
	l := NewLimiter()

	assert.True(t, l.CheckAndRecord("u1", "upload", 1))
	assert.False(t, l.CheckAndRecord("u1", "upload", 1))

	l.Reset("u1")
	assert.True(t, l.CheckAndRecord("u1", "upload", 1))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l := NewLimiter()
	advance := withClock(l, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	l.CheckAndRecord("idle", "upload", 10)
	advance(3 * time.Hour)
	l.CheckAndRecord("active", "upload", 10)

	removed := l.Sweep(2 * time.Hour)
	assert.Equal(t, 1, removed)

	// The active user keeps their history.
	for i := 0; i < 9; i++ {
		assert.True(t, l.CheckAndRecord("active", "upload", 10))
	}
	assert.False(t, l.CheckAndRecord("active", "upload", 10))
}
