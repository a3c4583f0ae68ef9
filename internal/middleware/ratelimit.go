package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
)

const (
	visitorIdle = 10 * time.Minute
	sweepEvery  = 1000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client IP.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	calls    int
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	return &limiterStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    max(cfg.BurstSize, 1),
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%sweepEvery == 0 {
		s.sweep(now.Add(-visitorIdle))
	}
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep forgets clients quiet since cutoff. Callers hold mu.
func (s *limiterStore) sweep(cutoff time.Time) {
	for k, v := range s.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(s.visitors, k)
		}
	}
}

// RateLimit rejects requests over the per-IP budget with 429 and a
// Retry-After hint. A non-positive rate disables limiting.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	store := newLimiterStore(cfg)
	limit := strconv.Itoa(store.burst)

	return func(c *gin.Context) {
		lim := store.get(c.ClientIP(), time.Now())
		c.Header("X-RateLimit-Limit", limit)
		if lim.Allow() {
			c.Next()
			return
		}

		retry := 1
		if r := lim.Reserve(); r.OK() {
			retry = max(int(math.Ceil(r.Delay().Seconds())), 1)
			r.Cancel()
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
