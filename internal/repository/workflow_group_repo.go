package repository

import (
	"context"

	"servicehub/internal/model"

	"gorm.io/gorm"
)

// WorkflowGroupRepository persists the approval-chain configuration the step
// resolver expands at submission time.
type WorkflowGroupRepository interface {
	CreateGroup(ctx context.Context, group *model.WorkflowGroup) error
	GetGroupByID(ctx context.Context, id string) (*model.WorkflowGroup, error)
	ListGroups(ctx context.Context, page, limit int) ([]model.WorkflowGroup, int64, error)
	UpdateGroup(ctx context.Context, group *model.WorkflowGroup) error

	CreateStep(ctx context.Context, step *model.WorkflowStep) error
	GetStepByID(ctx context.Context, id string) (*model.WorkflowStep, error)
	UpdateStep(ctx context.Context, step *model.WorkflowStep) error
	// ListActiveSteps returns a group's active steps in step order.
	ListActiveSteps(ctx context.Context, groupID string) ([]model.WorkflowStep, error)
}

type workflowGroupRepository struct {
	db *gorm.DB
}

func NewWorkflowGroupRepository(db *gorm.DB) WorkflowGroupRepository {
	return &workflowGroupRepository{db: db}
}

func (r *workflowGroupRepository) CreateGroup(ctx context.Context, group *model.WorkflowGroup) error {
	return GetDB(ctx, r.db).Create(group).Error
}

func (r *workflowGroupRepository) GetGroupByID(ctx context.Context, id string) (*model.WorkflowGroup, error) {
	var group model.WorkflowGroup
	if err := GetDB(ctx, r.db).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *workflowGroupRepository) ListGroups(ctx context.Context, page, limit int) ([]model.WorkflowGroup, int64, error) {
	var groups []model.WorkflowGroup
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.WorkflowGroup{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error; err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

func (r *workflowGroupRepository) UpdateGroup(ctx context.Context, group *model.WorkflowGroup) error {
	return GetDB(ctx, r.db).Save(group).Error
}

func (r *workflowGroupRepository) CreateStep(ctx context.Context, step *model.WorkflowStep) error {
	return GetDB(ctx, r.db).Create(step).Error
}

func (r *workflowGroupRepository) GetStepByID(ctx context.Context, id string) (*model.WorkflowStep, error) {
	var step model.WorkflowStep
	if err := GetDB(ctx, r.db).First(&step, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *workflowGroupRepository) UpdateStep(ctx context.Context, step *model.WorkflowStep) error {
	return GetDB(ctx, r.db).Save(step).Error
}

func (r *workflowGroupRepository) ListActiveSteps(ctx context.Context, groupID string) ([]model.WorkflowStep, error) {
	var steps []model.WorkflowStep
	if err := GetDB(ctx, r.db).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("step_order ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}
