package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 100
)

// TaskQuery carries the raw listing parameters. Encodings stay as
// received: unknown sort keys fall back to position, non-asc/desc
// orders fall back to asc, and non-numeric paging falls back to the
// defaults rather than failing the request.
type TaskQuery struct {
	Search    string
	Completed string
	Category  string
	Priority  string
	SortBy    string
	Order     string
	Page      string
	PageSize  string
}

// TaskInput is the full field set for create and replace. Absent fields
// take the record defaults.
type TaskInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	DueDate     *string `json:"due_date"`
	Position    int     `json:"position"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
	DueDate     *string `json:"due_date"`
	Position    *int    `json:"position"`
}

func (p TaskPatch) isEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Category == nil && p.DueDate == nil &&
		p.Position == nil
}

// Pagination resolves the raw page encodings to the effective values.
func (q TaskQuery) Pagination() (page, pageSize int) {
	return parsePositiveInt(q.Page, DefaultPage), parsePositiveInt(q.PageSize, DefaultPageSize)
}

type TaskService interface {
	CreateTask(db *gorm.DB, input TaskInput) (models.Task, error)
	GetTaskByID(db *gorm.DB, id uint) (models.Task, error)
	ListTasks(db *gorm.DB, query TaskQuery) ([]models.Task, int64, error)
	ReplaceTask(db *gorm.DB, id uint, input TaskInput) (models.Task, error)
	PatchTask(db *gorm.DB, id uint, patch TaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, id uint) error
}

// ReminderQueue receives best-effort due-date reminders after task
// writes. A nil queue disables reminders entirely.
type ReminderQueue interface {
	EnqueueReminder(task models.Task) error
}

type TaskServiceImpl struct {
	ReminderQueue ReminderQueue
}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

// priorityOrderExpr ranks recognized priorities ahead of everything
// else. Built from the model constants so SQL ordering cannot drift
// from PriorityRank.
var priorityOrderExpr = fmt.Sprintf(
	"CASE priority WHEN '%s' THEN %d WHEN '%s' THEN %d ELSE %d END",
	models.PriorityHigh, models.PriorityRank(models.PriorityHigh),
	models.PriorityNormal, models.PriorityRank(models.PriorityNormal),
	models.PriorityRank(""),
)

var sortColumns = map[string]string{
	"created_at": "created_at",
	"due_date":   "due_date",
	"priority":   priorityOrderExpr,
	"title":      "LOWER(title)",
	"position":   "position",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards so user text only ever matches
// literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isTruthy(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

func parsePositiveInt(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func orderClause(sortBy, order string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = sortColumns["position"]
	}

	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	// id breaks ties so equal keys always come back in insertion order.
	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

// completionTimestamp derives completed_at from completed for the write
// that touches either field: stamped when the task is completed,
// cleared otherwise.
func completionTimestamp(completed bool) *time.Time {
	if !completed {
		return nil
	}
	now := time.Now()
	return &now
}

func normalizeDueDate(due *string) *string {
	if due == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*due)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizePriority(priority string) string {
	if priority == "" {
		return models.PriorityNormal
	}
	return priority
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, query TaskQuery) ([]models.Task, int64, error) {
	scope := db.Model(&models.Task{})

	if query.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(query.Search)) + "%"
		scope = scope.Where(
			"(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')",
			pattern, pattern,
		)
	}
	if query.Completed != "" {
		scope = scope.Where("completed = ?", isTruthy(query.Completed))
	}
	if query.Category != "" {
		scope = scope.Where("category = ?", query.Category)
	}
	if query.Priority != "" {
		scope = scope.Where("priority = ?", query.Priority)
	}

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, &StorageError{Op: "count tasks", Err: err}
	}

	page, pageSize := query.Pagination()

	var tasks []models.Task
	err := scope.
		Order(orderClause(query.SortBy, query.Order)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, &StorageError{Op: "list tasks", Err: err}
	}

	return tasks, total, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, id uint) (models.Task, error) {
	var task models.Task
	err := db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, &StorageError{Op: "fetch task", Err: err}
	}
	return task, nil
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, input TaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, &ValidationError{Reason: "title must not be empty"}
	}

	task := models.Task{
		Title:       title,
		Description: input.Description,
		Completed:   input.Completed,
		Priority:    normalizePriority(input.Priority),
		Category:    input.Category,
		DueDate:     normalizeDueDate(input.DueDate),
		CompletedAt: completionTimestamp(input.Completed),
		Position:    input.Position,
	}

	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, &StorageError{Op: "create task", Err: err}
	}

	s.scheduleReminder(task)

	return task, nil
}

func (s *TaskServiceImpl) ReplaceTask(db *gorm.DB, id uint, input TaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, &ValidationError{Reason: "title must not be empty"}
	}

	task, err := s.GetTaskByID(db, id)
	if err != nil {
		return models.Task{}, err
	}

	task.Title = title
	task.Description = input.Description
	task.Completed = input.Completed
	task.Priority = normalizePriority(input.Priority)
	task.Category = input.Category
	task.DueDate = normalizeDueDate(input.DueDate)
	task.CompletedAt = completionTimestamp(input.Completed)
	task.Position = input.Position

	// id and created_at never appear in the update set.
	updates := map[string]interface{}{
		"title":        task.Title,
		"description":  task.Description,
		"completed":    task.Completed,
		"priority":     task.Priority,
		"category":     task.Category,
		"due_date":     task.DueDate,
		"completed_at": task.CompletedAt,
		"position":     task.Position,
	}

	result := db.Model(&models.Task{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Task{}, &StorageError{Op: "replace task", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return models.Task{}, ErrTaskNotFound
	}

	s.scheduleReminder(task)

	return task, nil
}

func (s *TaskServiceImpl) PatchTask(db *gorm.DB, id uint, patch TaskPatch) (models.Task, error) {
	if patch.isEmpty() {
		return models.Task{}, &ValidationError{Reason: "no fields supplied"}
	}

	task, err := s.GetTaskByID(db, id)
	if err != nil {
		return models.Task{}, err
	}

	updates := map[string]interface{}{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Task{}, &ValidationError{Reason: "title must not be empty"}
		}
		task.Title = title
		updates["title"] = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
		updates["description"] = task.Description
	}
	if patch.Priority != nil {
		task.Priority = normalizePriority(*patch.Priority)
		updates["priority"] = task.Priority
	}
	if patch.Category != nil {
		task.Category = *patch.Category
		updates["category"] = task.Category
	}
	if patch.DueDate != nil {
		task.DueDate = normalizeDueDate(patch.DueDate)
		updates["due_date"] = task.DueDate
	}
	if patch.Position != nil {
		task.Position = *patch.Position
		updates["position"] = task.Position
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
		task.CompletedAt = completionTimestamp(task.Completed)
		updates["completed"] = task.Completed
		updates["completed_at"] = task.CompletedAt
	}

	result := db.Model(&models.Task{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Task{}, &StorageError{Op: "patch task", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return models.Task{}, ErrTaskNotFound
	}

	s.scheduleReminder(task)

	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, id uint) error {
	result := db.Delete(&models.Task{}, id)
	if result.Error != nil {
		return &StorageError{Op: "delete task", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// scheduleReminder enqueues a due-date reminder after a successful
// write. Enqueue failures are logged, never surfaced: the task write
// already committed.
func (s *TaskServiceImpl) scheduleReminder(task models.Task) {
	if s.ReminderQueue == nil || task.DueDate == nil || task.Completed {
		return
	}
	if err := s.ReminderQueue.EnqueueReminder(task); err != nil {
		log.Printf("❌ Failed to enqueue reminder for task %d: %v", task.ID, err)
	}
}
