package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/MUSSAMALIK29/task-manager/internal/export"
	"github.com/MUSSAMALIK29/task-manager/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// exportPageSize caps an export that does not page explicitly. High
// enough to cover the whole collection in practice.
const exportPageSize = 100000

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
	exporter    *export.Exporter
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{
		db:          db,
		taskService: taskService,
		exporter:    export.NewExporter(),
	}
}

func taskQueryFromRequest(c *gin.Context) services.TaskQuery {
	return services.TaskQuery{
		Search:    c.Query("q"),
		Completed: c.Query("completed"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		SortBy:    c.Query("sortBy"),
		Order:     c.Query("order"),
		Page:      c.Query("page"),
		PageSize:  c.Query("pageSize"),
	}
}

// parseTaskID rejects non-integer path ids as not found: no task can
// ever have such an id.
func parseTaskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return 0, false
	}
	return uint(id), true
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	query := taskQueryFromRequest(c)

	tasks, total, err := h.taskService.ListTasks(h.db, query)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	page, pageSize := query.Pagination()
	c.JSON(http.StatusOK, gin.H{
		"tasks":     tasks,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTaskByID(h.db, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(h.db, input)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.ReplaceTask(h.db, id, input)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) PatchTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.PatchTask(h.db, id, patch)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(h.db, id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// ExportTasks renders the same filtered listing as GetTasks in the
// requested download format.
func (h *TaskHandler) ExportTasks(c *gin.Context) {
	query := taskQueryFromRequest(c)
	if query.PageSize == "" {
		query.PageSize = strconv.Itoa(exportPageSize)
	}
	format := c.DefaultQuery("format", export.FormatCSV)

	tasks, _, err := h.taskService.ListTasks(h.db, query)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	data, err := h.exporter.Export(format, tasks)
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown export format"})
			return
		}
		handleTaskError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename(format))
	c.Data(http.StatusOK, export.ContentType(format), data)
}

// handleTaskError keeps the three failure classes distinct on the
// wire: invalid input is 400 with the reason, a missing task is 404,
// and storage faults are a logged 500 with no internal detail.
func handleTaskError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	default:
		log.Printf("❌ Task request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
	}
}
