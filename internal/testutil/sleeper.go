package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper records requested sleeps instead of blocking.
// It satisfies ratelimit.Sleeper.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep records d and returns immediately unless ctx is already done.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns a copy of the recorded durations.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// Count returns how many sleeps of exactly d were recorded.
func (s *RecordingSleeper) Count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.sleeps {
		if got == d {
			n++
		}
	}
	return n
}

// Total returns the sum of recorded durations.
func (s *RecordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.sleeps {
		total += d
	}
	return total
}
