package repository

import (
	"context"

	"servicehub/internal/model"

	"gorm.io/gorm"
)

// TaskRepository covers the slice of the task store the approval engine
// touches: lookup plus the engine-owned status transitions.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := GetDB(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return GetDB(ctx, r.db).Model(&model.Task{}).Where("id = ?", id).Update("status", status).Error
}
