package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskapi/internal/domain/model"
	repo "taskapi/internal/repository"

	"gorm.io/gorm"
)

type taskGormRepository struct {
	db *gorm.DB
}

// DI
func NewTaskGormRepository(db *gorm.DB) repo.TaskRepository {
	return &taskGormRepository{db: db}
}

func (r *taskGormRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return err
	}
	return nil
}

// ユーザーのタスクを、絞り込み/検索/ソート/ページング付きで返す
func (r *taskGormRepository) ListByUser(ctx context.Context, userID int64, q repo.TaskListQuery) ([]model.Task, int64, error) {
	var tasks []model.Task
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", userID)

	if q.IsCompleted != nil {
		tx = tx.Where("is_completed = ?", *q.IsCompleted)
	}

	if q.Priority != nil {
		tx = tx.Where("priority = ?", *q.Priority)
	}

	//titleとdescriptionを対象
	if strings.TrimSpace(q.Search) != "" {
		like := "%" + strings.TrimSpace(q.Search) + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	//期日範囲
	if q.DueBefore != nil {
		tx = tx.Where("due_date <= ?", *q.DueBefore)
	}
	if q.DueAfter != nil {
		tx = tx.Where("due_date >= ?", *q.DueAfter)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Task{}, 0, err
	}

	//sort（SortByはusecase側でホワイトリスト済み）
	dir := "asc"
	if q.SortDesc {
		dir = "desc"
	}
	tx = tx.Order(q.SortBy + " " + dir).Order("id " + dir)

	offset := (q.Page - 1) * q.Limit
	if err := tx.Offset(offset).Limit(q.Limit).Find(&tasks).Error; err != nil {
		return []model.Task{}, 0, err
	}

	return tasks, total, nil
}

// IDでタスクを取得。他ユーザーの行は存在しない扱い
func (r *taskGormRepository) FindByID(ctx context.Context, userID int64, id int64) (*model.Task, error) {
	var t model.Task

	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrTaskNotFound
		}
		return nil, err
	}

	return &t, nil
}

func (r *taskGormRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]interface{}{
			"title":        task.Title,
			"description":  task.Description,
			"is_completed": task.IsCompleted,
			"completed_at": task.CompletedAt,
			"priority":     task.Priority,
			"due_date":     task.DueDate,
			"tags":         task.Tags,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrTaskNotFound
	}
	return nil
}

func (r *taskGormRepository) Delete(ctx context.Context, userID int64, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrTaskNotFound
	}
	return nil
}

// 集計を1クエリで取る
func (r *taskGormRepository) Stats(ctx context.Context, userID int64, now time.Time) (*repo.TaskStats, error) {
	var s repo.TaskStats

	row := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Select(`
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_completed) AS completed,
			COUNT(*) FILTER (WHERE NOT is_completed) AS pending,
			COUNT(*) FILTER (WHERE due_date IS NOT NULL AND due_date < ? AND NOT is_completed) AS overdue,
			COUNT(*) FILTER (WHERE priority = 'low') AS low,
			COUNT(*) FILTER (WHERE priority = 'medium') AS medium,
			COUNT(*) FILTER (WHERE priority = 'high') AS high`, now).
		Where("user_id = ?", userID).
		Row()

	if err := row.Scan(&s.Total, &s.Completed, &s.Pending, &s.Overdue, &s.Low, &s.Medium, &s.High); err != nil {
		return nil, err
	}

	return &s, nil
}

// 指定IDのタスクをまとめて更新。他ユーザーのIDは無視される
func (r *taskGormRepository) BulkUpdate(ctx context.Context, userID int64, ids []int64, upd repo.TaskBulkUpdate, now time.Time) (int64, error) {
	fields := map[string]interface{}{}

	if upd.IsCompleted != nil {
		fields["is_completed"] = *upd.IsCompleted
		if *upd.IsCompleted {
			fields["completed_at"] = &now
		} else {
			fields["completed_at"] = nil
		}
	}
	if upd.Priority != nil {
		fields["priority"] = *upd.Priority
	}

	if len(fields) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Updates(fields)

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *taskGormRepository) BulkDelete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, userID).
		Delete(&model.Task{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
