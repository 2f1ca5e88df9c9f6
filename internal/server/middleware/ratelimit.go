package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"attendance-control-plane/internal/audit"
)

// LimiterStore hands out one token-bucket limiter per client key.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	nowF     func() time.Time
}

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const staleAfter = 10 * time.Minute

// NewLimiterStore returns a store creating per-client limiters with the given
// rate and burst.
func NewLimiterStore(rps float64, burst int) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		nowF:     time.Now().UTC,
	}
}

func (s *LimiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	cl, ok := s.limiters[key]
	if !ok {
		if len(s.limiters) >= 1024 {
			s.evictStaleLocked(now)
		}
		cl = &clientLimiter{lim: rate.NewLimiter(s.rps, s.burst)}
		s.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

func (s *LimiterStore) evictStaleLocked(now time.Time) {
	for k, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > staleAfter {
			delete(s.limiters, k)
		}
	}
}

// RateLimit throttles requests per client IP. Throttled callers always get a
// retryAfter hint rather than a silent drop, and the event is audited
// best-effort.
func RateLimit(store *LimiterStore, auditor audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := store.get(c.ClientIP()).Reserve()
		if !res.OK() {
			rejectThrottled(c, auditor, float64(staleAfter/time.Second))
			return
		}
		delay := res.Delay()
		if delay > 0 {
			res.Cancel()
			rejectThrottled(c, auditor, delay.Seconds())
			return
		}
		c.Next()
	}
}

func rejectThrottled(c *gin.Context, auditor audit.Recorder, retryAfter float64) {
	retryAfter = math.Ceil(retryAfter*1000) / 1000
	if auditor != nil {
		auditor.LogEvent(c.Request.Context(), audit.EventRateLimited, c.ClientIP(), "",
			fmt.Sprintf(`{"path":%q}`, c.FullPath()))
	}
	c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(retryAfter))))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":      "too many requests",
		"retryAfter": retryAfter,
	})
}
