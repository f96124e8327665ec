package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
)

// TaskService is the reconciliation cycle the handler drives.
type TaskService interface {
	Create(ctx context.Context, input map[string]any) (provider.Record, error)
	Get(ctx context.Context, id string) (provider.Record, error)
	Update(ctx context.Context, id string, input map[string]any) (provider.Record, error)
	Delete(ctx context.Context, id string) (any, error)
	List(ctx context.Context, page, limit int) (*provider.Page, error)
}

// ScheduledTaskHandler serves /api/scheduled-tasks.
type ScheduledTaskHandler struct {
	tasks  TaskService
	logger *zap.Logger
}

func NewScheduledTaskHandler(tasks TaskService, logger *zap.Logger) *ScheduledTaskHandler {
	return &ScheduledTaskHandler{tasks: tasks, logger: logger}
}

// List handles GET /api/scheduled-tasks?page&limit.
func (h *ScheduledTaskHandler) List(c echo.Context) error {
	page, limit := pagination(c)
	result, err := h.tasks.List(c.Request().Context(), page, limit)
	if err != nil {
		return failure(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result.Body())
}

// Create handles POST /api/scheduled-tasks.
func (h *ScheduledTaskHandler) Create(c echo.Context) error {
	body, err := bindObject(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "request body must be a JSON object")
	}
	rec, err := h.tasks.Create(c.Request().Context(), body)
	if err != nil {
		return failure(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Get handles GET /api/scheduled-tasks/:id.
func (h *ScheduledTaskHandler) Get(c echo.Context) error {
	id, ok := taskID(c)
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "task id is required")
	}
	rec, err := h.tasks.Get(c.Request().Context(), id)
	if err != nil {
		return failure(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Update handles PUT /api/scheduled-tasks/:id.
func (h *ScheduledTaskHandler) Update(c echo.Context) error {
	id, ok := taskID(c)
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "task id is required")
	}
	body, err := bindObject(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "request body must be a JSON object")
	}
	rec, err := h.tasks.Update(c.Request().Context(), id, body)
	if err != nil {
		return failure(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /api/scheduled-tasks/:id.
func (h *ScheduledTaskHandler) Delete(c echo.Context) error {
	id, ok := taskID(c)
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "task id is required")
	}
	result, err := h.tasks.Delete(c.Request().Context(), id)
	if err != nil {
		return failure(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func taskID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	return id, id != ""
}
