package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/cache"
	"github.com/MUSSAMALIK29/task-manager/internal/config"
	"github.com/MUSSAMALIK29/task-manager/internal/database"
	"github.com/MUSSAMALIK29/task-manager/internal/export"
	"github.com/MUSSAMALIK29/task-manager/internal/handlers"
	"github.com/MUSSAMALIK29/task-manager/internal/middleware"
	"github.com/MUSSAMALIK29/task-manager/internal/monitoring"
	"github.com/MUSSAMALIK29/task-manager/internal/services"
	"github.com/MUSSAMALIK29/task-manager/internal/worker"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("📝 Starting Task Manager API...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("🛑 Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		log.Fatalf("🛑 Failed to connect to database: %v", err)
	}
	log.Printf("✅ Connected to %s database", cfg.Database.Driver)

	schema := database.NewSchemaManager(pool.DB)
	if err := schema.EnsureSchema(); err != nil {
		log.Fatalf("🛑 Failed to prepare database schema: %v", err)
	}
	log.Println("✅ Database schema ready")

	monitoring.RegisterHealthCheck(monitoring.DatabaseProbeName, func(ctx context.Context) error {
		return pool.Health()
	})

	taskService := services.NewTaskService()
	var service services.TaskService = taskService

	shutdownOps := map[string]gfshutdown.Operation{}

	var mlCache *cache.MultiLevelCache
	var cachedService *services.CachedTaskService
	if cfg.Cache.Enabled {
		redisCache := cache.NewRedisCache(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisCache.Health(); err != nil {
			log.Printf("❌ Redis unreachable, serving from in-memory cache until it recovers: %v", err)
		}

		mlCache = cache.NewMultiLevelCache(redisCache)
		cachedService = services.NewCachedTaskService(service, mlCache)
		service = cachedService
		log.Println("✅ Multi-level cache enabled")

		monitoring.RegisterHealthCheck("cache", func(ctx context.Context) error {
			return mlCache.Health()
		})

		if cfg.Cache.WarmingEnabled {
			mlCache.EnableWarming(cache.DefaultWarmupStrategy())
			cachedService.SetupCacheWarming(pool.DB)
			cachedService.StartCacheWarming(context.Background())
			if err := cachedService.WarmCriticalData(context.Background(), pool.DB); err != nil {
				log.Printf("❌ Cache warmup failed: %v", err)
			}
			log.Println("✅ Cache warming started")
		}

		shutdownOps["cache"] = func(ctx context.Context) error {
			if cachedService != nil {
				cachedService.StopCacheWarming()
			}
			return mlCache.Close()
		}
	}

	if cfg.Worker.Enabled {
		workerClient := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		jobQueue := worker.NewJobQueue(workerClient)
		taskService.ReminderQueue = jobQueue

		jobWorker := worker.NewWorker(worker.WorkerConfig{
			RedisClient:  workerClient,
			PollInterval: cfg.Worker.PollInterval,
			Queues:       cfg.Worker.Queues,
		})
		jobWorker.RegisterHandler(worker.JobTypeTaskDueReminder, handleTaskReminder)
		jobWorker.RegisterHandler(worker.JobTypeDataExport, handleDataExport(service, pool.DB))
		jobWorker.Start(cfg.Worker.Concurrency)
		log.Printf("✅ Background worker started (%d goroutines)", cfg.Worker.Concurrency)

		shutdownOps["worker"] = func(ctx context.Context) error {
			jobWorker.Stop()
			return workerClient.Close()
		}
	}

	router := setupRouter(cfg, pool.DB, service)

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("✅ Listening on %s", cfg.GetServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("🛑 Server failed: %v", err)
		}
	}()

	shutdownOps["http-server"] = func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
	shutdownOps["database"] = func(ctx context.Context) error {
		return pool.Close()
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, shutdownOps)
	exitCode := <-wait
	log.Printf("🛑 Shutdown complete (exit code %d)", exitCode)
	os.Exit(exitCode)
}

func setupRouter(cfg *config.Config, db *gorm.DB, taskService services.TaskService) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryWithLog())
	router.Use(middleware.RequestID())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.RateLimit(&middleware.RateLimitConfig{
		Enabled:         cfg.RateLimit.Enabled,
		RequestsPerMin:  cfg.RateLimit.RequestsPerMin,
		BurstSize:       cfg.RateLimit.BurstSize,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	taskHandler := handlers.NewTaskHandler(db, taskService)

	api := router.Group("/api")
	{
		api.GET("/tasks", taskHandler.GetTasks)
		api.POST("/tasks", taskHandler.CreateTask)
		api.GET("/tasks/export", taskHandler.ExportTasks)
		api.GET("/tasks/:id", taskHandler.GetTaskByID)
		api.PUT("/tasks/:id", taskHandler.UpdateTask)
		api.PATCH("/tasks/:id", taskHandler.PatchTask)
		api.DELETE("/tasks/:id", taskHandler.DeleteTask)
	}

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/ready", monitoring.ReadinessHandler())
	router.GET("/live", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	return router
}

func handleTaskReminder(ctx context.Context, job *worker.Job) error {
	log.Printf("📝 Reminder: task %v (%v) due %v",
		job.Payload["task_id"], job.Payload["title"], job.Payload["due_date"])
	return nil
}

// handleDataExport renders the full collection in the requested format
// and drops the file in the scratch directory for pickup.
func handleDataExport(taskService services.TaskService, db *gorm.DB) worker.JobHandler {
	exporter := export.NewExporter()

	return func(ctx context.Context, job *worker.Job) error {
		format, _ := job.Payload["format"].(string)

		tasks, _, err := taskService.ListTasks(db, services.TaskQuery{PageSize: "100000"})
		if err != nil {
			return err
		}

		data, err := exporter.Export(format, tasks)
		if err != nil {
			return err
		}

		path := filepath.Join(os.TempDir(), export.Filename(format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}

		log.Printf("✅ Export job %s wrote %d bytes to %s", job.ID, len(data), path)
		return nil
	}
}
