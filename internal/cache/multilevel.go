package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	DeletePattern(pattern string) error
	Exists(key string) (bool, error)
	Stats() map[string]interface{}
	Health() error
	Close() error
}

// promotionTTL bounds how long an entry promoted from L2 may outlive
// its L2 copy in local memory.
const promotionTTL = 5 * time.Minute

// MultiLevelCache layers an in-process map over an optional shared
// redis level. Every L2 call goes through a circuit breaker: when redis
// misbehaves the cache degrades to L1-only instead of failing reads.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	warmer  *CacheWarmer
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
	}
}

// EnableWarming attaches a warmer that re-populates configured keys on
// an interval. Call before Start; a nil strategy uses the defaults.
func (c *MultiLevelCache) EnableWarming(strategy *WarmupStrategy) *CacheWarmer {
	c.warmer = NewCacheWarmer(c, strategy)
	return c.warmer
}

func (c *MultiLevelCache) GetWarmer() *CacheWarmer {
	return c.warmer
}

func (c *MultiLevelCache) StartWarming(ctx context.Context) {
	if c.warmer != nil {
		c.warmer.Start(ctx)
	}
}

func (c *MultiLevelCache) StopWarming() {
	if c.warmer != nil {
		c.warmer.Stop()
	}
}

func (c *MultiLevelCache) Set(key string, value interface{}, ttl time.Duration) error {
	c.l1.Set(key, value, ttl)

	if c.l2 != nil {
		return c.breaker.Execute(func() error {
			return c.l2.Set(key, value, ttl)
		})
	}

	return nil
}

func (c *MultiLevelCache) Get(key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		return copyValue(value, dest)
	}

	if c.l2 != nil {
		// A miss is a healthy answer; only real faults may trip the
		// breaker.
		var missed bool
		err := c.breaker.Execute(func() error {
			innerErr := c.l2.Get(key, dest)
			if innerErr == ErrCacheMiss {
				missed = true
				return nil
			}
			return innerErr
		})
		if err == nil && !missed {
			c.l1.Set(key, dest, promotionTTL)
			return nil
		}
		// Breaker rejections and redis faults also read as misses so
		// callers fall back to storage.
		return ErrCacheMiss
	}

	return ErrCacheMiss
}

func (c *MultiLevelCache) Delete(key string) error {
	c.l1.Delete(key)

	if c.l2 != nil {
		return c.breaker.Execute(func() error {
			return c.l2.Delete(key)
		})
	}

	return nil
}

func (c *MultiLevelCache) DeletePattern(pattern string) error {
	c.l1.DeletePattern(pattern)

	if c.l2 != nil {
		return c.breaker.Execute(func() error {
			return c.l2.DeletePattern(pattern)
		})
	}

	return nil
}

func (c *MultiLevelCache) Exists(key string) (bool, error) {
	if _, found := c.l1.Get(key); found {
		return true, nil
	}

	if c.l2 != nil {
		var exists bool
		err := c.breaker.Execute(func() error {
			var innerErr error
			exists, innerErr = c.l2.Exists(key)
			return innerErr
		})
		if err != nil {
			return false, err
		}
		return exists, nil
	}

	return false, nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"breaker": c.breaker.GetStats(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}

	if c.warmer != nil {
		stats["warmer"] = c.warmer.GetStats()
	}

	return stats
}

func (c *MultiLevelCache) Health() error {
	if c.l2 != nil {
		return c.l2.Health()
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.warmer != nil {
		c.warmer.Stop()
	}

	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}

func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}

	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}

	if !destValue.Elem().CanSet() {
		return fmt.Errorf("destination is not settable")
	}

	jsonData, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	if err := json.Unmarshal(jsonData, dest); err != nil {
		return fmt.Errorf("failed to unmarshal to destination: %w", err)
	}

	return nil
}
