package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserLimiter keeps one token bucket per chat user
type UserLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*userEntry
	now      func() time.Time
}

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserLimiter allows perMinute requests per user with the given burst.
// perMinute <= 0 returns a limiter that allows everything.
func NewUserLimiter(perMinute, burst int) *UserLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := rate.Inf
	if perMinute > 0 {
		l = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &UserLimiter{
		limit:    l,
		burst:    burst,
		limiters: make(map[int64]*userEntry),
		now:      time.Now,
	}
}

func (ul *UserLimiter) get(userID int64) *rate.Limiter {
	e, ok := ul.limiters[userID]
	if !ok {
		e = &userEntry{limiter: rate.NewLimiter(ul.limit, ul.burst)}
		ul.limiters[userID] = e
	}
	e.lastSeen = ul.now()
	return e.limiter
}

// Allow checks if a user may issue another query now
func (ul *UserLimiter) Allow(userID int64) bool {
	if ul.limit == rate.Inf {
		return true
	}
	ul.mu.Lock()
	defer ul.mu.Unlock()

	return ul.get(userID).AllowN(ul.now(), 1)
}

// Cleanup forgets users idle for longer than maxIdle and returns how many were removed
func (ul *UserLimiter) Cleanup(maxIdle time.Duration) int {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	cutoff := ul.now().Add(-maxIdle)
	removed := 0
	for id, e := range ul.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(ul.limiters, id)
			removed++
		}
	}
	return removed
}

// Users returns the number of tracked users
func (ul *UserLimiter) Users() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.limiters)
}
