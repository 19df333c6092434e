package services

import (
	"context"
	"fmt"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/cache"
	"github.com/MUSSAMALIK29/task-manager/internal/models"

	"gorm.io/gorm"
)

const (
	taskCacheTTL    = 30 * time.Minute
	listingCacheTTL = 5 * time.Minute
)

// cachedListing keeps a page of results together with the unpaged
// total so a cache hit can answer the whole listing request.
type cachedListing struct {
	Tasks []models.Task `json:"tasks"`
	Total int64         `json:"total"`
}

// CachedTaskService decorates a TaskService with the multi-level
// cache. Reads are served from cache when possible; every mutation
// writes the fresh record through and invalidates all cached listings,
// since any filter or sort combination may be affected.
type CachedTaskService struct {
	taskService   TaskService
	cache         *cache.MultiLevelCache
	warmingActive bool
}

func NewCachedTaskService(taskService TaskService, cacheInstance *cache.MultiLevelCache) *CachedTaskService {
	return &CachedTaskService{
		taskService:   taskService,
		cache:         cacheInstance,
		warmingActive: false,
	}
}

func taskCacheKey(id uint) string {
	return fmt.Sprintf("task:%d", id)
}

// listCacheKey derives a canonical key from the raw query encodings,
// so two requests with the same parameters share one entry.
func listCacheKey(query TaskQuery) string {
	return fmt.Sprintf("tasks:list:q=%s:completed=%s:category=%s:priority=%s:sort=%s:order=%s:page=%s:size=%s",
		query.Search, query.Completed, query.Category, query.Priority,
		query.SortBy, query.Order, query.Page, query.PageSize)
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, input TaskInput) (models.Task, error) {
	task, err := s.taskService.CreateTask(db, input)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskCacheKey(task.ID), task, taskCacheTTL)
	s.cache.DeletePattern("tasks:list:*")

	return task, nil
}

func (s *CachedTaskService) GetTaskByID(db *gorm.DB, id uint) (models.Task, error) {
	cacheKey := taskCacheKey(id)

	var cachedTask models.Task
	if err := s.cache.Get(cacheKey, &cachedTask); err == nil {
		return cachedTask, nil
	}

	task, err := s.taskService.GetTaskByID(db, id)
	if err != nil {
		return task, err
	}

	s.cache.Set(cacheKey, task, taskCacheTTL)

	return task, nil
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, query TaskQuery) ([]models.Task, int64, error) {
	cacheKey := listCacheKey(query)

	var cached cachedListing
	if err := s.cache.Get(cacheKey, &cached); err == nil {
		return cached.Tasks, cached.Total, nil
	}

	tasks, total, err := s.taskService.ListTasks(db, query)
	if err != nil {
		return tasks, total, err
	}

	s.cache.Set(cacheKey, cachedListing{Tasks: tasks, Total: total}, listingCacheTTL)

	return tasks, total, nil
}

func (s *CachedTaskService) ReplaceTask(db *gorm.DB, id uint, input TaskInput) (models.Task, error) {
	task, err := s.taskService.ReplaceTask(db, id, input)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskCacheKey(id), task, taskCacheTTL)
	s.cache.DeletePattern("tasks:list:*")

	return task, nil
}

func (s *CachedTaskService) PatchTask(db *gorm.DB, id uint, patch TaskPatch) (models.Task, error) {
	task, err := s.taskService.PatchTask(db, id, patch)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskCacheKey(id), task, taskCacheTTL)
	s.cache.DeletePattern("tasks:list:*")

	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, id uint) error {
	if err := s.taskService.DeleteTask(db, id); err != nil {
		return err
	}

	s.cache.Delete(taskCacheKey(id))
	s.cache.DeletePattern("tasks:list:*")

	return nil
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

// SetupCacheWarming registers standing jobs that keep the most-read
// listings hot. Call after EnableWarming on the cache.
func (s *CachedTaskService) SetupCacheWarming(db *gorm.DB) {
	if s.cache == nil {
		return
	}

	warmer := s.cache.GetWarmer()
	if warmer == nil {
		return
	}

	defaultQuery := TaskQuery{}
	warmer.AddWarmupJob(cache.WarmupJob{
		Key: listCacheKey(defaultQuery),
		Loader: func() (interface{}, error) {
			tasks, total, err := s.taskService.ListTasks(db, defaultQuery)
			if err != nil {
				return nil, err
			}
			return cachedListing{Tasks: tasks, Total: total}, nil
		},
		TTL:      listingCacheTTL,
		Priority: 100,
	})

	pendingQuery := TaskQuery{Completed: "false"}
	warmer.AddWarmupJob(cache.WarmupJob{
		Key: listCacheKey(pendingQuery),
		Loader: func() (interface{}, error) {
			tasks, total, err := s.taskService.ListTasks(db, pendingQuery)
			if err != nil {
				return nil, err
			}
			return cachedListing{Tasks: tasks, Total: total}, nil
		},
		TTL:      listingCacheTTL,
		Priority: 80,
	})
}

func (s *CachedTaskService) StartCacheWarming(ctx context.Context) {
	if s.cache == nil {
		return
	}

	warmer := s.cache.GetWarmer()
	if warmer != nil && !s.warmingActive {
		warmer.Start(ctx)
		s.warmingActive = true
	}
}

func (s *CachedTaskService) StopCacheWarming() {
	if s.cache == nil {
		return
	}

	warmer := s.cache.GetWarmer()
	if warmer != nil && s.warmingActive {
		warmer.Stop()
		s.warmingActive = false
	}
}

// WarmCriticalData primes the hot listings once, in the background,
// without waiting for the first warmup interval.
func (s *CachedTaskService) WarmCriticalData(ctx context.Context, db *gorm.DB) error {
	if s.cache == nil {
		return nil
	}

	go func() {
		for _, query := range []TaskQuery{{}, {Completed: "false"}} {
			select {
			case <-ctx.Done():
				return
			default:
			}

			tasks, total, err := s.taskService.ListTasks(db, query)
			if err != nil {
				continue
			}
			s.cache.Set(listCacheKey(query), cachedListing{Tasks: tasks, Total: total}, listingCacheTTL)
		}
	}()

	return nil
}
