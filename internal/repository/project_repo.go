package repository

import (
	"context"

	"servicehub/internal/model"

	"gorm.io/gorm"
)

// ProjectRepository mirrors TaskRepository for project entities.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return GetDB(ctx, r.db).Create(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	if err := GetDB(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return GetDB(ctx, r.db).Model(&model.Project{}).Where("id = ?", id).Update("status", status).Error
}
