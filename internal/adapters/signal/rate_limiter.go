package signal

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dkeye/Ephemeral/internal/domain"
)

// SessionRateLimiter is a sliding-window limiter keyed by session.
type SessionRateLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	history  map[domain.SessionID][]time.Time
	limit    int
	interval time.Duration
}

func NewSessionRateLimiter(clock clockwork.Clock, limit int, interval time.Duration) *SessionRateLimiter {
	return &SessionRateLimiter{
		clock:    clock,
		history:  make(map[domain.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *SessionRateLimiter) Allow(sid domain.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sid]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[sid] = fresh
		return false
	}
	rl.history[sid] = append(fresh, now)
	return true
}

// Forget drops the window of a closed session.
func (rl *SessionRateLimiter) Forget(sid domain.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
