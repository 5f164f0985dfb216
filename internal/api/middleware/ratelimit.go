package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter 按客户端 IP 维护令牌桶。闲置条目在访问时顺手清理，
// 不开后台协程，公开端点的 IP 基数有限。
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time

	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func newIPLimiter(requestsPerMinute, burst int) *ipLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.now()
	cutoff := current.Add(-l.idleTTL)
	for ip, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.limiters, ip)
			delete(l.lastSeen, ip)
		}
	}

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.lastSeen[key] = current
	return limiter.Allow()
}

// RateLimitMiddleware 按客户端 IP 做令牌桶限流，超限返回 429。
func RateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	limiter := newIPLimiter(requestsPerMinute, burst)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
