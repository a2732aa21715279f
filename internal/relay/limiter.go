package relay

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserLimiter applies a token bucket per user. A nil *UserLimiter allows everything.
type UserLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*rate.Limiter
}

// NewUserLimiter allows perMinute messages per user with the given burst. perMinute <= 0 disables limiting.
func NewUserLimiter(perMinute float64, burst int) *UserLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (l *UserLimiter) Allow(userID int64, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}
