package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/config"
	"github.com/MUSSAMALIK29/task-manager/internal/database"
	"github.com/MUSSAMALIK29/task-manager/internal/models"
	"github.com/MUSSAMALIK29/task-manager/internal/monitoring"
	"github.com/MUSSAMALIK29/task-manager/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"
)

type listResponse struct {
	Tasks    []models.Task `json:"tasks"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func setupTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          database.DriverSQLite,
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Hour,
		LogLevel:        logger.Silent,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	schema := database.NewSchemaManager(pool.DB)
	if err := schema.EnsureSchema(); err != nil {
		t.Fatalf("Failed to prepare schema: %v", err)
	}

	monitoring.ResetMetrics()
	monitoring.RegisterHealthCheck(monitoring.DatabaseProbeName, func(ctx context.Context) error {
		return pool.Health()
	})
	t.Cleanup(func() { monitoring.UnregisterHealthCheck(monitoring.DatabaseProbeName) })

	cfg := &config.Config{}
	cfg.RateLimit.Enabled = false

	return setupRouter(cfg, pool.DB, services.NewTaskService())
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.RemoteAddr = "127.0.0.1:54321"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestApplicationStartup(t *testing.T) {
	os.Setenv("ENVIRONMENT", "development")
	os.Setenv("DB_DRIVER", "sqlite")
	os.Setenv("REDIS_HOST", "localhost")
	defer func() {
		os.Unsetenv("ENVIRONMENT")
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("REDIS_HOST")
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Configuration should not be nil")
	}

	t.Log("Application configuration loaded successfully")
}

func TestTaskLifecycle(t *testing.T) {
	router := setupTestApp(t)

	w := doRequest(router, "POST", "/api/tasks",
		`{"title":"Buy milk","priority":"High","category":"errands","due_date":"2026-09-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Expected created task to have an id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
	if created.CompletedAt != nil {
		t.Error("Expected no completed_at on a fresh task")
	}

	w = doRequest(router, "GET", "/api/tasks/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(router, "PUT", "/api/tasks/1",
		`{"title":"Buy milk","completed":true,"priority":"High","category":"errands"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on replace, got %d: %s", w.Code, w.Body.String())
	}

	var replaced models.Task
	json.Unmarshal(w.Body.Bytes(), &replaced)
	if !replaced.Completed {
		t.Error("Expected task to be completed after replace")
	}
	if replaced.CompletedAt == nil {
		t.Error("Expected completed_at to be stamped on completion")
	}
	if !replaced.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Expected created_at to survive replace")
	}

	w = doRequest(router, "PATCH", "/api/tasks/1", `{"completed":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on patch, got %d: %s", w.Code, w.Body.String())
	}

	var patched models.Task
	json.Unmarshal(w.Body.Bytes(), &patched)
	if patched.Completed {
		t.Error("Expected task to be pending after patch")
	}
	if patched.CompletedAt != nil {
		t.Error("Expected completed_at to be cleared when reopened")
	}
	if patched.Title != "Buy milk" {
		t.Errorf("Expected untouched fields to survive patch, got title %q", patched.Title)
	}

	w = doRequest(router, "DELETE", "/api/tasks/1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204 on delete, got %d", w.Code)
	}

	w = doRequest(router, "GET", "/api/tasks/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}

	w = doRequest(router, "DELETE", "/api/tasks/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on double delete, got %d", w.Code)
	}
}

func TestTaskValidationOverHTTP(t *testing.T) {
	router := setupTestApp(t)

	w := doRequest(router, "POST", "/api/tasks", `{"title":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank title, got %d", w.Code)
	}

	w = doRequest(router, "POST", "/api/tasks", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", w.Code)
	}

	w = doRequest(router, "PATCH", "/api/tasks/1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty patch, got %d", w.Code)
	}

	w = doRequest(router, "GET", "/api/tasks/not-a-number", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-integer id, got %d", w.Code)
	}
}

func TestTaskFilteringAndSorting(t *testing.T) {
	router := setupTestApp(t)

	seeds := []string{
		`{"title":"Pay rent","priority":"High","category":"finance"}`,
		`{"title":"Walk the dog","priority":"Normal","category":"home","completed":true}`,
		`{"title":"Renew passport","priority":"Low","category":"errands"}`,
	}
	for _, seed := range seeds {
		if w := doRequest(router, "POST", "/api/tasks", seed); w.Code != http.StatusCreated {
			t.Fatalf("Seed failed with status %d: %s", w.Code, w.Body.String())
		}
	}

	w := doRequest(router, "GET", "/api/tasks", "")
	var all listResponse
	json.Unmarshal(w.Body.Bytes(), &all)
	if all.Total != 3 {
		t.Fatalf("Expected total 3, got %d", all.Total)
	}
	if all.Page != 1 || all.PageSize != 100 {
		t.Errorf("Expected default paging 1/100, got %d/%d", all.Page, all.PageSize)
	}

	w = doRequest(router, "GET", "/api/tasks?q=RENT", "")
	var searched listResponse
	json.Unmarshal(w.Body.Bytes(), &searched)
	if searched.Total != 1 || searched.Tasks[0].Title != "Pay rent" {
		t.Errorf("Expected case-insensitive search to find 'Pay rent', got %+v", searched.Tasks)
	}

	w = doRequest(router, "GET", "/api/tasks?completed=true", "")
	var done listResponse
	json.Unmarshal(w.Body.Bytes(), &done)
	if done.Total != 1 || done.Tasks[0].Title != "Walk the dog" {
		t.Errorf("Expected one completed task, got %+v", done.Tasks)
	}

	w = doRequest(router, "GET", "/api/tasks?sortBy=priority&order=asc", "")
	var byPriority listResponse
	json.Unmarshal(w.Body.Bytes(), &byPriority)
	if len(byPriority.Tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(byPriority.Tasks))
	}
	if byPriority.Tasks[0].Priority != "High" {
		t.Errorf("Expected High priority first, got %s", byPriority.Tasks[0].Priority)
	}
	if byPriority.Tasks[2].Priority != "Low" {
		t.Errorf("Expected unrecognized priority last, got %s", byPriority.Tasks[2].Priority)
	}

	w = doRequest(router, "GET", "/api/tasks?page=2&pageSize=2", "")
	var paged listResponse
	json.Unmarshal(w.Body.Bytes(), &paged)
	if paged.Total != 3 {
		t.Errorf("Expected total to count all matches, got %d", paged.Total)
	}
	if len(paged.Tasks) != 1 {
		t.Errorf("Expected 1 task on second page, got %d", len(paged.Tasks))
	}

	w = doRequest(router, "GET", "/api/tasks?page=9", "")
	var empty listResponse
	json.Unmarshal(w.Body.Bytes(), &empty)
	if w.Code != http.StatusOK || len(empty.Tasks) != 0 {
		t.Errorf("Expected empty page to succeed, got status %d with %d tasks", w.Code, len(empty.Tasks))
	}
}

func TestExportOverHTTP(t *testing.T) {
	router := setupTestApp(t)

	doRequest(router, "POST", "/api/tasks", `{"title":"Pay rent","priority":"High"}`)
	doRequest(router, "POST", "/api/tasks", `{"title":"Walk the dog"}`)

	w := doRequest(router, "GET", "/api/tasks/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for default export, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv content type, got %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "id,title") {
		t.Errorf("Expected CSV header, got %q", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Expected attachment disposition, got %s", cd)
	}

	w = doRequest(router, "GET", "/api/tasks/export?format=json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for json export, got %d", w.Code)
	}
	var exported []models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &exported); err != nil {
		t.Fatalf("Failed to parse json export: %v", err)
	}
	if len(exported) != 2 {
		t.Errorf("Expected 2 exported tasks, got %d", len(exported))
	}

	w = doRequest(router, "GET", "/api/tasks/export?format=pdf", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for pdf export, got %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("Expected PDF magic bytes")
	}

	w = doRequest(router, "GET", "/api/tasks/export?format=xml", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown format, got %d", w.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	router := setupTestApp(t)

	w := doRequest(router, "GET", "/live", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected liveness 200, got %d", w.Code)
	}

	w = doRequest(router, "GET", "/ready", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected readiness 200 with healthy database, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(router, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected metrics 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "request_count") {
		t.Error("Expected request_count in metrics payload")
	}
}
