// Package ratelimit implements a sliding-window call counter per user and
// operation kind. Cost per call is bounded by the configured limit, not by
// total history: old timestamps are pruned before every decision.
package ratelimit

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

// Window is the sliding interval over which limits apply.
const Window = time.Hour

const shardCount = 16

type shard struct {
	mu    sync.Mutex
	calls map[string][]time.Time
}

// Limiter tracks recent call timestamps per (user, operation), striped so
// unrelated users never contend on one lock.
type Limiter struct {
	shards [shardCount]shard

	// now is swappable in tests.
	now func() time.Time
}

func NewLimiter() *Limiter {
	l := &Limiter{now: time.Now}
	for i := range l.shards {
		l.shards[i].calls = make(map[string][]time.Time)
	}
	return l
}

func key(userID, op string) string {
	return userID + "|" + op
}

func (l *Limiter) shardFor(k string) *shard {
	h := fnv.New32a()
	h.Write([]byte(k))
	return &l.shards[h.Sum32()%shardCount]
}

// CheckAndRecord prunes entries older than the window, rejects the call if
// the remaining count has reached limitPerHour, and otherwise records the
// call and allows it.
func (l *Limiter) CheckAndRecord(userID, op string, limitPerHour int) bool {
	if limitPerHour <= 0 {
		return false
	}

	k := key(userID, op)
	s := l.shardFor(k)
	now := l.now()
	cutoff := now.Add(-Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.calls[k]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limitPerHour {
		s.calls[k] = kept
		return false
	}

	s.calls[k] = append(kept, now)
	return true
}

// Reset forgets all recorded calls for one user across operations.
func (l *Limiter) Reset(userID string) {
	prefix := userID + "|"
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for k := range s.calls {
			if strings.HasPrefix(k, prefix) {
				delete(s.calls, k)
			}
		}
		s.mu.Unlock()
	}
}

// Sweep removes keys whose most recent call is older than idleFor,
// bounding memory held for users who left. Returns the number of keys
// dropped.
func (l *Limiter) Sweep(idleFor time.Duration) int {
	cutoff := l.now().Add(-idleFor)
	removed := 0

	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for k, stamps := range s.calls {
			if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
				delete(s.calls, k)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}
