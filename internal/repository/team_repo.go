package repository

import (
	"context"

	"servicehub/internal/model"

	"gorm.io/gorm"
)

// TeamRepository exposes the read-only team directory consumed by the step
// resolver and the step-option listings.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*model.Team, error)
	// ListMembers returns the active users belonging to a team, ordered by
	// username.
	ListMembers(ctx context.Context, teamID string) ([]model.User, error)
	List(ctx context.Context) ([]model.Team, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	if err := GetDB(ctx, r.db).Preload("Leader").First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID string) ([]model.User, error) {
	var users []model.User
	err := GetDB(ctx, r.db).
		Joins("INNER JOIN team_members tm ON tm.user_id = users.id").
		Where("tm.team_id = ? AND users.is_active = ?", teamID, true).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *teamRepository) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := GetDB(ctx, r.db).Preload("Leader").Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}
