package service

import (
	"context"
	"errors"
	"fmt"

	"servicehub/internal/model"
	"servicehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approver is a concrete user eligible to action a workflow level.
type Approver struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// StepOption is one valid assigned-value choice for a step type, used by the
// configuration UI to populate dropdowns.
type StepOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StepResolver expands workflow step definitions into concrete approvers at
// submission time, and validates assigned values when a step's type changes.
type StepResolver interface {
	// ResolveStep returns the eligible approvers for one step. Multiple
	// approvers means OR semantics: any one of them satisfies the level.
	ResolveStep(ctx context.Context, step model.WorkflowStep, submitterID uuid.UUID) ([]Approver, error)
	// ResolveGroup expands a workflow group's active steps, in step order,
	// into one designated approver per level. A step resolving to an empty
	// set fails the whole resolution with ErrNoApprovers.
	ResolveGroup(ctx context.Context, groupID string, submitterID uuid.UUID) ([]Approver, error)
	// ValidateAssignedValue checks value against the option set of stepType.
	// A value outside the set is replaced by the first valid default; an
	// empty option set yields ErrNoOptions. A stale value is never carried
	// forward across a type change.
	ValidateAssignedValue(ctx context.Context, stepType, value string) (string, error)
	// ListOptions returns the valid assigned-value choices for a step type.
	ListOptions(ctx context.Context, stepType string) ([]StepOption, error)
}

type stepResolver struct {
	users     repository.UserRepository
	teams     repository.TeamRepository
	groups    repository.WorkflowGroupRepository
	hierarchy HierarchyService
}

func NewStepResolver(
	users repository.UserRepository,
	teams repository.TeamRepository,
	groups repository.WorkflowGroupRepository,
	hierarchy HierarchyService,
) StepResolver {
	return &stepResolver{users: users, teams: teams, groups: groups, hierarchy: hierarchy}
}

func (s *stepResolver) ResolveStep(ctx context.Context, step model.WorkflowStep, submitterID uuid.UUID) ([]Approver, error) {
	switch step.StepType {
	case model.StepTypeRole:
		users, err := s.users.FindActiveByRole(ctx, step.AssignedValue)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role step: %w", err)
		}
		return toApprovers(users), nil

	case model.StepTypeSpecificUser:
		user, err := s.users.GetByID(ctx, step.AssignedValue)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []Approver{}, nil
			}
			return nil, fmt.Errorf("failed to resolve specific-user step: %w", err)
		}
		if !user.IsActive {
			return []Approver{}, nil
		}
		return []Approver{{ID: user.ID, Name: user.Username}}, nil

	case model.StepTypeSuperior:
		chain, err := s.hierarchy.Resolve(ctx, submitterID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve superior step: %w", err)
		}
		if len(chain) == 0 {
			return []Approver{}, nil
		}
		return []Approver{{ID: chain[0].ApproverID, Name: chain[0].ApproverName}}, nil

	case model.StepTypeTeam:
		team, err := s.teams.GetByID(ctx, step.AssignedValue)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []Approver{}, nil
			}
			return nil, fmt.Errorf("failed to resolve team step: %w", err)
		}
		if team.LeaderID != nil && team.Leader != nil && team.Leader.IsActive {
			return []Approver{{ID: team.Leader.ID, Name: team.Leader.Username}}, nil
		}
		members, err := s.teams.ListMembers(ctx, step.AssignedValue)
		if err != nil {
			return nil, fmt.Errorf("failed to list team members: %w", err)
		}
		return toApprovers(members), nil

	default:
		return nil, fmt.Errorf("unknown step type: %s", step.StepType)
	}
}

func (s *stepResolver) ResolveGroup(ctx context.Context, groupID string, submitterID uuid.UUID) ([]Approver, error) {
	steps, err := s.groups.ListActiveSteps(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow steps: %w", err)
	}

	approvers := make([]Approver, 0, len(steps))
	for _, step := range steps {
		eligible, err := s.ResolveStep(ctx, step, submitterID)
		if err != nil {
			return nil, err
		}
		if len(eligible) == 0 {
			return nil, fmt.Errorf("%w for step %d", ErrNoApprovers, step.StepOrder)
		}
		// Multiple eligible approvers satisfy the level with OR semantics;
		// the first (leader, or first by username) is recorded as the
		// designated approver for the level.
		approvers = append(approvers, eligible[0])
	}

	return approvers, nil
}

func (s *stepResolver) ValidateAssignedValue(ctx context.Context, stepType, value string) (string, error) {
	if stepType == model.StepTypeSuperior {
		// Superior steps carry no assigned value.
		return "", nil
	}

	options, err := s.ListOptions(ctx, stepType)
	if err != nil {
		return "", err
	}
	if len(options) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoOptions, stepType)
	}

	for _, opt := range options {
		if opt.Value == value {
			return value, nil
		}
	}
	return options[0].Value, nil
}

func (s *stepResolver) ListOptions(ctx context.Context, stepType string) ([]StepOption, error) {
	switch stepType {
	case model.StepTypeRole:
		names, err := s.users.ListRoleNames(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]StepOption, 0, len(names))
		for _, name := range names {
			options = append(options, StepOption{Value: name, Label: name})
		}
		return options, nil

	case model.StepTypeSpecificUser:
		users, err := s.users.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]StepOption, 0, len(users))
		for _, u := range users {
			options = append(options, StepOption{Value: u.ID.String(), Label: u.Username})
		}
		return options, nil

	case model.StepTypeSuperior:
		return []StepOption{}, nil

	case model.StepTypeTeam:
		teams, err := s.teams.List(ctx)
		if err != nil {
			return nil, err
		}
		options := make([]StepOption, 0, len(teams))
		for _, t := range teams {
			options = append(options, StepOption{Value: t.ID.String(), Label: t.Name})
		}
		return options, nil

	default:
		return nil, fmt.Errorf("unknown step type: %s", stepType)
	}
}

func toApprovers(users []model.User) []Approver {
	approvers := make([]Approver, 0, len(users))
	for _, u := range users {
		approvers = append(approvers, Approver{ID: u.ID, Name: u.Username})
	}
	return approvers
}
