package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// LimiterManager keeps one token bucket per client key.
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	done     chan struct{}
	once     sync.Once
	now      func() time.Time
}

// NewLimiterManager allows requestsPerMin per key with the given burst, and
// evicts keys idle for longer than limiterIdleTTL.
func NewLimiterManager(requestsPerMin, burst int) *LimiterManager {
	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go m.cleanupRoutine(limiterIdleTTL)
	return m
}

func (m *LimiterManager) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = l
	}
	m.lastSeen[key] = m.now()
	return l
}

// Allow is non-blocking.
func (m *LimiterManager) Allow(key string) bool {
	return m.limiter(key).Allow()
}

func (m *LimiterManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(interval)
		case <-m.done:
			return
		}
	}
}

func (m *LimiterManager) cleanup(maxIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, seen := range m.lastSeen {
		if now.Sub(seen) > maxIdle {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (m *LimiterManager) Close() {
	m.once.Do(func() { close(m.done) })
}

// RateLimit rejects clients over their budget with 429. A nil manager
// disables limiting.
func RateLimit(m *LimiterManager, log *zap.Logger) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if !m.Allow(key) {
			log.Info("rate limit exceeded", zap.String("key", key), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
