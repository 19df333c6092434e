package cache

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// WarmupJob describes one key the warmer keeps populated. Loader is
// called on every warmup cycle for fresh data; jobs without a Loader
// write their static Data.
type WarmupJob struct {
	Key      string
	Loader   func() (interface{}, error)
	Data     interface{}
	TTL      time.Duration
	Priority int
}

type WarmupStrategy struct {
	Jobs           []WarmupJob
	BatchSize      int
	Concurrency    int
	WarmupInterval time.Duration
	HealthCheck    func() bool
}

func DefaultWarmupStrategy() *WarmupStrategy {
	return &WarmupStrategy{
		BatchSize:      10,
		Concurrency:    3,
		WarmupInterval: 5 * time.Minute,
	}
}

// CacheWarmer replays its standing job set into the cache on an
// interval. Jobs stay registered across cycles; higher priority jobs
// are written first within a cycle.
type CacheWarmer struct {
	cache    Cache
	strategy *WarmupStrategy
	queue    *PriorityQueue

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewCacheWarmer(cache Cache, strategy *WarmupStrategy) *CacheWarmer {
	if strategy == nil {
		strategy = DefaultWarmupStrategy()
	}
	if strategy.BatchSize <= 0 {
		strategy.BatchSize = 10
	}
	if strategy.Concurrency <= 0 {
		strategy.Concurrency = 3
	}

	cw := &CacheWarmer{
		cache:    cache,
		strategy: strategy,
		queue:    NewPriorityQueue(),
	}

	for _, job := range strategy.Jobs {
		cw.queue.Push(job)
	}

	return cw
}

func (cw *CacheWarmer) AddWarmupJob(job WarmupJob) {
	cw.queue.Push(job)
	log.Printf("📝 Added warmup job: %s (priority: %d)", job.Key, job.Priority)
}

func (cw *CacheWarmer) Start(ctx context.Context) {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = true
	cw.stopCh = make(chan struct{})
	stopCh := cw.stopCh
	cw.mu.Unlock()

	log.Printf("🔥 Starting cache warmer with %d jobs", cw.queue.Len())

	go cw.warmCache(ctx)

	if cw.strategy.WarmupInterval > 0 {
		ticker := time.NewTicker(cw.strategy.WarmupInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if cw.shouldWarmup() {
						cw.warmCache(ctx)
					}
				case <-stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (cw *CacheWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return
	}

	cw.running = false
	close(cw.stopCh)
	log.Printf("🛑 Cache warmer stopped")
}

func (cw *CacheWarmer) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// WarmNow runs one warmup cycle synchronously.
func (cw *CacheWarmer) WarmNow(ctx context.Context) {
	cw.warmCache(ctx)
}

func (cw *CacheWarmer) warmCache(ctx context.Context) {
	jobs := cw.queue.GetJobs()
	if len(jobs) == 0 {
		return
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].Priority > jobs[j].Priority
	})

	batchSize := cw.strategy.BatchSize

	log.Printf("🔥 Warming cache with %d jobs (batch: %d, concurrent: %d)",
		len(jobs), batchSize, cw.strategy.Concurrency)

	for i := 0; i < len(jobs); i += batchSize {
		end := i + batchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		cw.processBatch(ctx, jobs[i:end])

		select {
		case <-ctx.Done():
			log.Printf("Cache warming cancelled")
			return
		default:
		}
	}
}

func (cw *CacheWarmer) processBatch(ctx context.Context, jobs []WarmupJob) {
	jobCh := make(chan WarmupJob, len(jobs))
	var wg sync.WaitGroup

	workers := cw.strategy.Concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				select {
				case <-ctx.Done():
					return
				default:
					cw.processJob(job)
				}
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	wg.Wait()
}

func (cw *CacheWarmer) processJob(job WarmupJob) {
	data := job.Data

	if job.Loader != nil {
		loaded, err := job.Loader()
		if err != nil {
			log.Printf("Failed to load data for warmup key %s: %v", job.Key, err)
			return
		}
		data = loaded
	}

	if err := cw.cache.Set(job.Key, data, job.TTL); err != nil {
		log.Printf("Failed to warm cache key %s: %v", job.Key, err)
	}
}

func (cw *CacheWarmer) shouldWarmup() bool {
	if cw.strategy.HealthCheck != nil {
		return cw.strategy.HealthCheck()
	}

	return cw.cache.Health() == nil
}

func (cw *CacheWarmer) GetStats() map[string]interface{} {
	cw.mu.Lock()
	running := cw.running
	cw.mu.Unlock()

	return map[string]interface{}{
		"running":     running,
		"interval":    cw.strategy.WarmupInterval.String(),
		"total_jobs":  cw.queue.Len(),
		"batch_size":  cw.strategy.BatchSize,
		"concurrency": cw.strategy.Concurrency,
	}
}
