package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	Enabled         bool
	RequestsPerMin  int
	BurstSize       int
	CleanupInterval time.Duration
}

func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:         true,
		RequestsPerMin:  300,
		BurstSize:       50,
		CleanupInterval: 10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = client
	}
	client.lastSeen = time.Now()
	return client.limiter
}

func (rl *rateLimiter) cleanup(olderThan time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, client := range rl.clients {
		if time.Since(client.lastSeen) > olderThan {
			delete(rl.clients, ip)
		}
	}
}

// RateLimit holds each client IP to its own token bucket. Buckets idle
// past the cleanup interval are dropped to bound memory.
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if !config.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	if config.RequestsPerMin < 1 {
		config.RequestsPerMin = DefaultRateLimitConfig().RequestsPerMin
	}
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}

	rl := &rateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(config.RequestsPerMin) / 60.0),
		burst:   config.BurstSize,
	}

	// Seconds until the bucket refills one token.
	retryAfter := strconv.Itoa(int(math.Ceil(60.0 / float64(config.RequestsPerMin))))

	if config.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(config.CleanupInterval)
			defer ticker.Stop()
			for range ticker.C {
				rl.cleanup(config.CleanupInterval)
			}
		}()
	}

	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
