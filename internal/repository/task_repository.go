package repository

import (
	"context"
	"errors"
	"time"

	"taskapi/internal/domain/model"
)

var ErrTaskNotFound = errors.New("task not found")

// 一覧検索
type TaskListQuery struct {
	Page        int
	Limit       int
	SortBy      string //created_at / due_date / priority / title
	SortDesc    bool
	IsCompleted *bool
	Priority    *model.Priority
	Search      string //titleとdescriptionの部分一致
	DueBefore   *time.Time
	DueAfter    *time.Time
}

// 一括更新で変更できる項目
type TaskBulkUpdate struct {
	IsCompleted *bool
	Priority    *model.Priority
}

// タスク集計
type TaskStats struct {
	Total     int64
	Completed int64
	Pending   int64
	Overdue   int64
	Low       int64
	Medium    int64
	High      int64
}

// タスクの永続化だけを約束。全操作userIDスコープ
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	ListByUser(ctx context.Context, userID int64, q TaskListQuery) ([]model.Task, int64, error)
	FindByID(ctx context.Context, userID int64, id int64) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID int64, id int64) error
	Stats(ctx context.Context, userID int64, now time.Time) (*TaskStats, error)
	BulkUpdate(ctx context.Context, userID int64, ids []int64, upd TaskBulkUpdate, now time.Time) (int64, error)
	BulkDelete(ctx context.Context, userID int64, ids []int64) (int64, error)
}
