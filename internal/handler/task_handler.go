package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"taskapi/internal/middleware"
	"taskapi/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /api/tasks のAPI。全ルート認証必須
type TaskHandler struct {
	uc *usecase.TaskUsecase
}

// DI
func NewTaskHandler(uc *usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{uc: uc}
}

func (h *TaskHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	tasks := g.Group("/tasks", requireAuth)

	tasks.POST("", h.create)
	tasks.GET("", h.list)
	tasks.GET("/stats", h.stats)
	tasks.PATCH("/bulk", h.bulkUpdate)
	tasks.DELETE("/bulk", h.bulkDelete)
	tasks.GET("/:id", h.detail)
	tasks.PATCH("/:id", h.update)
	tasks.DELETE("/:id", h.remove)
	tasks.PATCH("/:id/toggle", h.toggle)
}

// POST /api/tasks
func (h *TaskHandler) create(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	task, err := h.uc.Create(c.Request().Context(), user.ID, req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusCreated, "Task created successfully", map[string]interface{}{"task": task})
}

// GET /api/tasks
func (h *TaskHandler) list(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	in, err := parseListQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	res, err := h.uc.List(c.Request().Context(), user.ID, *in)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Tasks retrieved successfully", res)
}

// GET /api/tasks/:id
func (h *TaskHandler) detail(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	task, err := h.uc.GetByID(c.Request().Context(), user.ID, id)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Task retrieved successfully", map[string]interface{}{"task": task})
}

// PATCH /api/tasks/:id
func (h *TaskHandler) update(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req usecase.TaskUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	task, err := h.uc.Update(c.Request().Context(), user.ID, id, req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Task updated successfully", map[string]interface{}{"task": task})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) remove(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), user.ID, id); err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}

// PATCH /api/tasks/:id/toggle
func (h *TaskHandler) toggle(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	task, err := h.uc.ToggleComplete(c.Request().Context(), user.ID, id)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Task updated successfully", map[string]interface{}{"task": task})
}

// GET /api/tasks/stats
func (h *TaskHandler) stats(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	res, err := h.uc.Stats(c.Request().Context(), user.ID)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Stats retrieved successfully", res)
}

// PATCH /api/tasks/bulk
func (h *TaskHandler) bulkUpdate(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.TaskBulkUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	res, err := h.uc.BulkUpdate(c.Request().Context(), user.ID, req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Tasks updated successfully", res)
}

// DELETE /api/tasks/bulk
func (h *TaskHandler) bulkDelete(c echo.Context) error {
	user, okAuth := middleware.CurrentUser(c)
	if !okAuth {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req usecase.TaskBulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	res, err := h.uc.BulkDelete(c.Request().Context(), user.ID, req)
	if err != nil {
		return writeError(c, err)
	}

	return ok(c, http.StatusOK, "Tasks deleted successfully", res)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// クエリ文字列を一覧の検索条件に変換する
func parseListQuery(c echo.Context) (*usecase.TaskListInput, error) {
	in := &usecase.TaskListInput{
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Search:    c.QueryParam("search"),
	}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid page")
		}
		in.Page = p
	}

	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid limit")
		}
		in.Limit = l
	}

	if v := c.QueryParam("is_completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid is_completed")
		}
		in.IsCompleted = &b
	}

	if v := c.QueryParam("priority"); v != "" {
		in.Priority = &v
	}

	if v := c.QueryParam("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid due_before")
		}
		in.DueBefore = &t
	}

	if v := c.QueryParam("due_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid due_after")
		}
		in.DueAfter = &t
	}

	return in, nil
}
