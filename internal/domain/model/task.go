package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// 有効なpriorityかどうか
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ユーザーごとのタスク
type Task struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index:idx_tasks_user_created,priority:1;index" json:"user_id"`

	Title       string `gorm:"type:varchar(200);not null" json:"title"`
	Description string `gorm:"type:varchar(1000);not null;default:''" json:"description"`

	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`

	Priority Priority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	DueDate *time.Time `gorm:"index" json:"due_date"`

	//カンマ区切りで保存（最大10個）
	Tags string `gorm:"type:text;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_tasks_user_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Tagsカラムをスライスに戻す
func (t *Task) TagList() []string {
	if t.Tags == "" {
		return []string{}
	}
	return strings.Split(t.Tags, ",")
}

// スライスをTagsカラム形式にする
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
