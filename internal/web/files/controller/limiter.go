package controller

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 5 * time.Minute
	limiterSweepSize = 1024
)

type limiterBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ipLimiter is a token bucket per client ip.
// Idle buckets are swept at most once per limiterIdleTTL.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*limiterBucket
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:     limit,
		burst:     burst,
		buckets:   map[string]*limiterBucket{},
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) >= limiterSweepSize && now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &limiterBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now

	return b.lim.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.buckets, k)
		}
	}
}

func (c *Controller) rateLimit(ctx *gin.Context) {
	if c.limiter != nil && !c.limiter.allow(ctx.ClientIP()) {
		ctx.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
		return
	}

	ctx.Next()
}
