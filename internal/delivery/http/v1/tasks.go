package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/identityclient"
	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/services"
)

type TaskHandler struct {
	logger zerolog.Logger
	tasks  services.TaskService
}

func NewTaskHandler(logger zerolog.Logger, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{
		logger: logger,
		tasks:  taskService,
	}
}

func (h *TaskHandler) RegisterRoutes(router gin.IRouter, authorize gin.HandlerFunc) {
	tasksRouter := router.Group("/tasks", authorize)
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.GET("", h.HandleListTasks)
	tasksRouter.GET("/user/:userId", h.HandleListTasksByUser)
	tasksRouter.GET("/:id", h.HandleGetTask)
	tasksRouter.PATCH("/:id", h.HandleUpdateTask)
	tasksRouter.PATCH("/:id/assign", h.HandleAssignTask)
	tasksRouter.PATCH("/:id/status", h.HandleSetTaskStatus)
	tasksRouter.PATCH("/:id/revert", h.HandleRevertTaskStatus)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)
}

// taskResponse is the external projection. previousStatus is internal
// bookkeeping for revert and is never serialized.
type taskResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"dueDate"`
	AssignedToID *string   `json:"assignedToId"`
}

func newTaskResponse(task *models.Task) taskResponse {
	resp := taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
	}
	if task.AssignedToID != "" {
		resp.AssignedToID = &task.AssignedToID
	}
	return resp
}

type assigneeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type enrichedTaskResponse struct {
	taskResponse
	AssignedTo *assigneeResponse `json:"assignedTo"`
}

func newEnrichedTaskResponse(enriched identityclient.EnrichedTask) enrichedTaskResponse {
	resp := enrichedTaskResponse{
		taskResponse: newTaskResponse(enriched.Task),
	}
	if enriched.AssignedTo != nil {
		resp.AssignedTo = &assigneeResponse{
			ID:   enriched.AssignedTo.ID,
			Name: enriched.AssignedTo.Name,
		}
	}
	return resp
}

type createTaskRequest struct {
	Title        string `json:"title" binding:"required,max=100"`
	Description  string `json:"description" binding:"max=2000"`
	DueDate      string `json:"dueDate" binding:"required"`
	AssignedToID string `json:"assignedToId"`
}

func (h *TaskHandler) HandleCreateTask(c *gin.Context) {
	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	created, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "task created",
		"taskId":  created.ID,
	})
}

func (h *TaskHandler) HandleListTasks(c *gin.Context) {
	authCtx, ok := authContext(c)
	if !ok {
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	enriched, err := h.tasks.ListTasks(c, authCtx.Token)
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newEnrichedTaskListResponse(enriched))
}

func (h *TaskHandler) HandleListTasksByUser(c *gin.Context) {
	authCtx, ok := authContext(c)
	if !ok {
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	enriched, err := h.tasks.ListTasksByAssignee(c, c.Param("userId"), authCtx.Token)
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newEnrichedTaskListResponse(enriched))
}

func newEnrichedTaskListResponse(enriched []identityclient.EnrichedTask) []enrichedTaskResponse {
	response := make([]enrichedTaskResponse, len(enriched))
	for i, e := range enriched {
		response[i] = newEnrichedTaskResponse(e)
	}
	return response
}

func (h *TaskHandler) HandleGetTask(c *gin.Context) {
	found, err := h.tasks.GetTaskByID(c, c.Param("id"))
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(found))
}

type updateTaskRequest struct {
	Title        *string `json:"title,omitempty" binding:"omitempty,max=100"`
	Description  *string `json:"description,omitempty" binding:"omitempty,max=2000"`
	DueDate      *string `json:"dueDate,omitempty"`
	AssignedToID *string `json:"assignedToId,omitempty"`
}

func (h *TaskHandler) HandleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	updated, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		ID:           c.Param("id"),
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(updated))
}

type assignTaskRequest struct {
	// UserID is null (or absent) to unassign.
	UserID *string `json:"userId"`
}

func (h *TaskHandler) HandleAssignTask(c *gin.Context) {
	authCtx, ok := authContext(c)
	if !ok {
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	var req assignTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	result, err := h.tasks.AssignTask(c, services.AssignTaskParams{
		TaskID:     c.Param("id"),
		IdentityID: req.UserID,
		Token:      authCtx.Token,
	})
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	response := gin.H{
		"message": result.Message,
		"taskId":  result.TaskID,
	}
	if result.IdentityID != "" {
		response["userId"] = result.IdentityID
		response["userName"] = result.IdentityName
	}
	c.JSON(http.StatusOK, response)
}

type setTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TaskHandler) HandleSetTaskStatus(c *gin.Context) {
	var req setTaskStatusRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	updated, err := h.tasks.SetTaskStatus(c, c.Param("id"), req.Status)
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(updated))
}

func (h *TaskHandler) HandleRevertTaskStatus(c *gin.Context) {
	reverted, err := h.tasks.RevertTaskStatus(c, c.Param("id"))
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(reverted))
}

func (h *TaskHandler) HandleDeleteTask(c *gin.Context) {
	taskID := c.Param("id")
	err := h.tasks.DeleteTask(c, taskID)
	if err != nil {
		h.abortWithTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task " + taskID + " deleted"})
}

func (h *TaskHandler) abortWithTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
	case errors.Is(err, services.ErrIdentityNotFound):
		abort(c, newNotFoundError(services.ErrIdentityNotFound.Error()))
	case errors.Is(err, services.ErrInvalidDueDate),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrNoPreviousStatus):
		abort(c, newBadRequestError(err.Error()))
	default:
		h.logger.Error().
			Err(err).
			Msg("task operation failed")
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
