package infrastructure

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused per-user limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CommandLimiter is a per-user token bucket for commands and button presses.
type CommandLimiter struct {
	mu       sync.Mutex
	limiters map[snowflake.ID]*userLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewCommandLimiter allows each user perSecond commands with bursts of burst.
func NewCommandLimiter(perSecond float64, burst int) *CommandLimiter {
	return &CommandLimiter{
		limiters: make(map[snowflake.ID]*userLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether userID may run a command now and consumes a token if so.
func (l *CommandLimiter) Allow(userID snowflake.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[userID]
	if !ok {
		l.evictIdleLocked(now)
		entry = &userLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *CommandLimiter) evictIdleLocked(now time.Time) {
	for userID, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, userID)
		}
	}
}
