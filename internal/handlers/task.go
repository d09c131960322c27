package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/collab-miniapp-api/internal/dto"
	apierrors "github.com/yukikurage/collab-miniapp-api/internal/errors"
	"github.com/yukikurage/collab-miniapp-api/internal/middleware"
	"github.com/yukikurage/collab-miniapp-api/internal/services"
	"github.com/yukikurage/collab-miniapp-api/internal/utils"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns a page of the group's tasks.
// Query: status, assigned_to_me, due_today, page, limit
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	input := services.ListTasksInput{
		AssignedToMe: queryBool(c, "assigned_to_me"),
		DueToday:     queryBool(c, "due_today"),
		Pagination:   utils.GetPaginationParams(c),
	}
	if status, exists := c.GetQuery("status"); exists {
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListGroupTasks(c.Request.Context(), userID, groupID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, input.Pagination, total))
}

// CreateTask creates a task in the group
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, groupID, req.ToCreateTaskInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":   true,
		"task": dto.ToTaskDTO(*task),
	})
}

// SuggestTasks drafts tasks from free text without saving them
func (h *TaskHandler) SuggestTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, _ := middleware.GetGroupID(c)

	var req dto.SuggestTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	drafts, err := h.taskService.SuggestTasks(c.Request.Context(), userID, groupID, req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"tasks": drafts,
	})
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "id", "task ID")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"task": dto.ToTaskDTO(*task),
	})
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}
	h.update(c, req.ToUpdateTaskInput())
}

// CompleteTask marks the task done
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	h.update(c, services.UpdateTaskInput{Done: utils.Some(true)})
}

func (h *TaskHandler) update(c *gin.Context, input services.UpdateTaskInput) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := uintParam(c, "id", "task ID")
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, taskID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"task": dto.ToTaskDTO(*task),
	})
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
