package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterTable holds per-IP buckets and evicts entries idle for over
// two sweep intervals.
type limiterTable struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      int
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

func (t *limiterTable) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(t.rps), t.burst)}
		t.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

func (t *limiterTable) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			for ip, l := range t.limiters {
				if time.Since(l.lastSeen) > 2*every {
					delete(t.limiters, ip)
				}
			}
			t.mu.Unlock()
		}
	}
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting, plus a stop function that ends the background cleanup
// goroutine. rps is the steady-state requests per second; burst is the
// maximum burst size; stale entries are swept every cleanupEvery.
func RateLimiter(rps, burst int, cleanupEvery time.Duration) (gin.HandlerFunc, func()) {
	t := &limiterTable{
		limiters: make(map[string]*ipLimiter),
		rps:      rps,
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go t.sweep(cleanupEvery)

	mw := func(c *gin.Context) {
		if !t.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
	return mw, func() { t.stopOnce.Do(func() { close(t.stop) }) }
}
