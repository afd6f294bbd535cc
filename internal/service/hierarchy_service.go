package service

import (
	"context"
	"errors"

	"servicehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxHierarchyDepth bounds the superior-chain walk. The directory does not
// guarantee an acyclic superior graph, so a cyclic assignment (data-entry
// error) degrades to a truncated chain instead of looping forever.
const MaxHierarchyDepth = 4

// HierarchyLevel is one entry of a user's resolved approval chain,
// level 1 being the immediate superior.
type HierarchyLevel struct {
	Level          int       `json:"level"`
	ApproverID     uuid.UUID `json:"approver_id"`
	ApproverName   string    `json:"approver_name"`
	RoleName       string    `json:"role_name"`
	DepartmentName string    `json:"department_name"`
}

// HierarchyService resolves a user's chain of superiors. Pure read; a
// directory miss yields an empty chain, not an error, so approval submission
// does not hard-fail on stale data.
type HierarchyService interface {
	Resolve(ctx context.Context, userID string) ([]HierarchyLevel, error)
}

type hierarchyService struct {
	users repository.UserRepository
}

func NewHierarchyService(users repository.UserRepository) HierarchyService {
	return &hierarchyService{users: users}
}

func (s *hierarchyService) Resolve(ctx context.Context, userID string) ([]HierarchyLevel, error) {
	current, err := s.users.GetWithDirectory(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []HierarchyLevel{}, nil
		}
		return nil, err
	}

	chain := make([]HierarchyLevel, 0, MaxHierarchyDepth)
	visited := map[uuid.UUID]bool{current.ID: true}

	for level := 1; level <= MaxHierarchyDepth; level++ {
		if current.SuperiorID == nil {
			break
		}
		if visited[*current.SuperiorID] {
			// Cycle in the superior graph: truncate here.
			break
		}

		superior, err := s.users.GetWithDirectory(ctx, current.SuperiorID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Dangling superior reference: treat the chain as ending.
				break
			}
			return nil, err
		}

		entry := HierarchyLevel{
			Level:        level,
			ApproverID:   superior.ID,
			ApproverName: superior.Username,
			RoleName:     superior.RoleName,
		}
		if superior.Department != nil {
			entry.DepartmentName = superior.Department.Name
		}
		chain = append(chain, entry)

		visited[superior.ID] = true
		current = superior
	}

	return chain, nil
}
