package usecase

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
	"taskapi/internal/repository"

	"go.uber.org/zap"
)

const (
	taskDefaultLimit = 10
	taskMaxLimit     = 100
	taskMaxBulkIDs   = 100
)

type TaskValidator interface {
	ValidateCreate(ctx context.Context, req TaskCreateRequest) error
	ValidateUpdate(ctx context.Context, req TaskUpdateRequest) error
	ValidateBulkUpdate(ctx context.Context, req TaskBulkUpdateRequest) error
	ValidateBulkDelete(ctx context.Context, req TaskBulkDeleteRequest) error
}

type TaskDTO struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type TaskCreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

type TaskUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	IsCompleted *bool      `json:"is_completed"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// 一覧の検索条件（handlerがクエリ文字列から組み立てる）
type TaskListInput struct {
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
	IsCompleted *bool
	Priority    *string
	Search      string
	DueBefore   *time.Time
	DueAfter    *time.Time
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int64 `json:"total_pages"`
	HasNextPage bool  `json:"has_next_page"`
	HasPrevPage bool  `json:"has_prev_page"`
}

type TaskListResponse struct {
	Tasks      []TaskDTO  `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

type TaskStatsByPriority struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}

type TaskStatsResponse struct {
	Total          int64               `json:"total"`
	Completed      int64               `json:"completed"`
	Pending        int64               `json:"pending"`
	Overdue        int64               `json:"overdue"`
	ByPriority     TaskStatsByPriority `json:"by_priority"`
	CompletionRate int                 `json:"completion_rate"`
}

type TaskBulkUpdateRequest struct {
	IDs         []int64 `json:"ids"`
	IsCompleted *bool   `json:"is_completed"`
	Priority    *string `json:"priority"`
}

type TaskBulkUpdateResponse struct {
	Updated int64 `json:"updated"`
}

type TaskBulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type TaskBulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// ソートに使えるキー（クエリ文字列 → カラム名）
var taskSortColumns = map[string]string{
	"createdAt": "created_at",
	"dueDate":   "due_date",
	"priority":  "priority",
	"title":     "title",
}

type TaskUsecase struct {
	tasks     repository.TaskRepository
	validator TaskValidator
	logger    *zap.Logger
}

func NewTaskUsecase(tasks repository.TaskRepository, validator TaskValidator, logger *zap.Logger) *TaskUsecase {
	return &TaskUsecase{
		tasks:     tasks,
		validator: validator,
		logger:    logger,
	}
}

func (u *TaskUsecase) Create(ctx context.Context, userID int64, req TaskCreateRequest) (*TaskDTO, error) {
	if err := u.validator.ValidateCreate(ctx, req); err != nil {
		return nil, err
	}

	priority := model.PriorityMedium
	if req.Priority != nil {
		priority = model.Priority(*req.Priority)
	}

	task := &model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Tags:        model.JoinTags(req.Tags),
	}

	if err := u.tasks.Create(ctx, task); err != nil {
		return nil, ErrInternal
	}

	u.logger.Debug("task created", zap.Int64("task_id", task.ID), zap.Int64("user_id", userID))

	dto := toTaskDTO(task)
	return &dto, nil
}

func (u *TaskUsecase) List(ctx context.Context, userID int64, in TaskListInput) (*TaskListResponse, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}

	limit := in.Limit
	if limit < 1 {
		limit = taskDefaultLimit
	}
	if limit > taskMaxLimit {
		limit = taskMaxLimit
	}

	//ソートキーはホワイトリスト制
	sortBy, ok := taskSortColumns[in.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortDesc := in.SortOrder != "asc"

	q := repository.TaskListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    sortBy,
		SortDesc:  sortDesc,
		Search:    in.Search,
		DueBefore: in.DueBefore,
		DueAfter:  in.DueAfter,
	}

	q.IsCompleted = in.IsCompleted

	//不正なpriority指定はフィルタなし扱い
	if in.Priority != nil {
		p := model.Priority(*in.Priority)
		if p.Valid() {
			q.Priority = &p
		}
	}

	tasks, total, err := u.tasks.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, ErrInternal
	}

	dtos := make([]TaskDTO, 0, len(tasks))
	for i := range tasks {
		dtos = append(dtos, toTaskDTO(&tasks[i]))
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)

	return &TaskListResponse{
		Tasks: dtos,
		Pagination: Pagination{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNextPage: int64(page)*int64(limit) < total,
			HasPrevPage: page > 1,
		},
	}, nil
}

func (u *TaskUsecase) GetByID(ctx context.Context, userID int64, taskID int64) (*TaskDTO, error) {
	task, err := u.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	dto := toTaskDTO(task)
	return &dto, nil
}

func (u *TaskUsecase) Update(ctx context.Context, userID int64, taskID int64, req TaskUpdateRequest) (*TaskDTO, error) {
	if err := u.validator.ValidateUpdate(ctx, req); err != nil {
		return nil, err
	}

	task, err := u.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = model.Priority(*req.Priority)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Tags != nil {
		task.Tags = model.JoinTags(req.Tags)
	}

	//完了状態の変化に合わせてcompleted_atを付け外しする
	if req.IsCompleted != nil && *req.IsCompleted != task.IsCompleted {
		task.IsCompleted = *req.IsCompleted
		setCompletedAt(task)
	}

	if err := u.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}

	u.logger.Debug("task updated", zap.Int64("task_id", task.ID))

	dto := toTaskDTO(task)
	return &dto, nil
}

func (u *TaskUsecase) Delete(ctx context.Context, userID int64, taskID int64) error {
	if err := u.tasks.Delete(ctx, userID, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	u.logger.Debug("task deleted", zap.Int64("task_id", taskID))
	return nil
}

// ToggleCompleteは完了状態を反転させる
func (u *TaskUsecase) ToggleComplete(ctx context.Context, userID int64, taskID int64) (*TaskDTO, error) {
	task, err := u.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.IsCompleted = !task.IsCompleted
	setCompletedAt(task)

	if err := u.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}

	dto := toTaskDTO(task)
	return &dto, nil
}

func (u *TaskUsecase) Stats(ctx context.Context, userID int64) (*TaskStatsResponse, error) {
	s, err := u.tasks.Stats(ctx, userID, time.Now())
	if err != nil {
		return nil, ErrInternal
	}

	rate := 0
	if s.Total > 0 {
		rate = int(float64(s.Completed)/float64(s.Total)*100 + 0.5)
	}

	return &TaskStatsResponse{
		Total:     s.Total,
		Completed: s.Completed,
		Pending:   s.Pending,
		Overdue:   s.Overdue,
		ByPriority: TaskStatsByPriority{
			Low:    s.Low,
			Medium: s.Medium,
			High:   s.High,
		},
		CompletionRate: rate,
	}, nil
}

func (u *TaskUsecase) BulkUpdate(ctx context.Context, userID int64, req TaskBulkUpdateRequest) (*TaskBulkUpdateResponse, error) {
	if err := u.validator.ValidateBulkUpdate(ctx, req); err != nil {
		return nil, err
	}

	upd := repository.TaskBulkUpdate{IsCompleted: req.IsCompleted}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		upd.Priority = &p
	}

	count, err := u.tasks.BulkUpdate(ctx, userID, req.IDs, upd, time.Now())
	if err != nil {
		return nil, ErrInternal
	}

	u.logger.Debug("bulk updated tasks", zap.Int64("count", count), zap.Int64("user_id", userID))

	return &TaskBulkUpdateResponse{Updated: count}, nil
}

func (u *TaskUsecase) BulkDelete(ctx context.Context, userID int64, req TaskBulkDeleteRequest) (*TaskBulkDeleteResponse, error) {
	if err := u.validator.ValidateBulkDelete(ctx, req); err != nil {
		return nil, err
	}

	count, err := u.tasks.BulkDelete(ctx, userID, req.IDs)
	if err != nil {
		return nil, ErrInternal
	}

	u.logger.Debug("bulk deleted tasks", zap.Int64("count", count), zap.Int64("user_id", userID))

	return &TaskBulkDeleteResponse{Deleted: count}, nil
}

func (u *TaskUsecase) findOwned(ctx context.Context, userID int64, taskID int64) (*model.Task, error) {
	task, err := u.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}
	return task, nil
}

func setCompletedAt(task *model.Task) {
	if task.IsCompleted {
		now := time.Now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

func toTaskDTO(t *model.Task) TaskDTO {
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		CompletedAt: t.CompletedAt,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Tags:        t.TagList(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
