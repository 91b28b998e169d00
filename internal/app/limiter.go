package app

import (
	"sync"
	"time"

	"github.com/dkeye/proximity/internal/core"
)

const DefaultJoinCooldown = 5 * time.Second

// JoinLimiter allows at most limit join attempts per viewer within interval.
type JoinLimiter struct {
	mu       sync.Mutex
	history  map[core.SessionID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewJoinLimiter(limit int, interval time.Duration) *JoinLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &JoinLimiter{
		history:  make(map[core.SessionID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (l *JoinLimiter) Allow(sid core.SessionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.interval)

	attempts := l.history[sid]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= l.limit {
		l.history[sid] = fresh
		return false
	}
	l.history[sid] = append(fresh, now)
	return true
}

// Forget drops the history of a disconnected viewer.
func (l *JoinLimiter) Forget(sid core.SessionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.history, sid)
}
