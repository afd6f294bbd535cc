package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"servicehub/internal/model"
	"servicehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateWorkflowStepRequest struct {
	StepOrder     int    `json:"step_order" binding:"required,min=1"`
	StepType      string `json:"step_type" binding:"required,oneof=role specific_user superior team"`
	AssignedValue string `json:"assigned_value"`
	Description   string `json:"description"`
}

type CreateWorkflowGroupRequest struct {
	Name        string                      `json:"name" binding:"required"`
	Description string                      `json:"description"`
	ServiceID   string                      `json:"service_id"`
	Steps       []CreateWorkflowStepRequest `json:"steps" binding:"required,min=1,dive"`
}

// UpdateWorkflowStepRequest changes a step definition. Changing the type
// forces revalidation of the assigned value against the new type's option
// set; a stale value is never carried across a type change.
type UpdateWorkflowStepRequest struct {
	StepType      string  `json:"step_type" binding:"omitempty,oneof=role specific_user superior team"`
	AssignedValue *string `json:"assigned_value"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
}

// --- Interface ---

type WorkflowGroupService interface {
	CreateGroup(ctx context.Context, actorID string, req CreateWorkflowGroupRequest) (*model.WorkflowGroup, error)
	GetGroup(ctx context.Context, id string) (*model.WorkflowGroup, error)
	ListGroups(ctx context.Context, page, limit int) ([]model.WorkflowGroup, int64, error)
	UpdateStep(ctx context.Context, stepID, actorID string, req UpdateWorkflowStepRequest) (*model.WorkflowStep, error)
	ListStepOptions(ctx context.Context, stepType string) ([]StepOption, error)
}

type workflowGroupService struct {
	groups   repository.WorkflowGroupRepository
	resolver StepResolver
	audit    repository.AuditRepository
	txm      repository.TransactionManager
}

func NewWorkflowGroupService(
	groups repository.WorkflowGroupRepository,
	resolver StepResolver,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) WorkflowGroupService {
	return &workflowGroupService{groups: groups, resolver: resolver, audit: audit, txm: txm}
}

// --- Implementation ---

func (s *workflowGroupService) CreateGroup(ctx context.Context, actorID string, req CreateWorkflowGroupRequest) (*model.WorkflowGroup, error) {
	if err := validateStepOrders(req.Steps); err != nil {
		return nil, err
	}

	group := &model.WorkflowGroup{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if req.ServiceID != "" {
		sID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid service id", ErrInvalidInput)
		}
		group.ServiceID = &sID
	}

	steps := make([]model.WorkflowStep, 0, len(req.Steps))
	for _, stepReq := range req.Steps {
		value, err := s.resolver.ValidateAssignedValue(ctx, stepReq.StepType, stepReq.AssignedValue)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", stepReq.StepOrder, err)
		}
		steps = append(steps, model.WorkflowStep{
			StepOrder:     stepReq.StepOrder,
			StepType:      stepReq.StepType,
			AssignedValue: value,
			Description:   stepReq.Description,
			IsActive:      true,
		})
	}

	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.groups.CreateGroup(txCtx, group); createErr != nil {
			return fmt.Errorf("failed to create workflow group: %w", createErr)
		}
		for i := range steps {
			steps[i].GroupID = group.ID
			if createErr := s.groups.CreateStep(txCtx, &steps[i]); createErr != nil {
				return fmt.Errorf("failed to create workflow step: %w", createErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{"steps": len(steps)})
		return s.audit.Log(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionCreateWorkflowGroup,
			EntityID:   group.ID.String(),
			EntityName: group.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	group.Steps = steps
	return group, nil
}

func (s *workflowGroupService) GetGroup(ctx context.Context, id string) (*model.WorkflowGroup, error) {
	group, err := s.groups.GetGroupByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: workflow group %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load workflow group: %w", err)
	}
	return group, nil
}

func (s *workflowGroupService) ListGroups(ctx context.Context, page, limit int) ([]model.WorkflowGroup, int64, error) {
	return s.groups.ListGroups(ctx, page, limit)
}

func (s *workflowGroupService) UpdateStep(ctx context.Context, stepID, actorID string, req UpdateWorkflowStepRequest) (*model.WorkflowStep, error) {
	step, err := s.groups.GetStepByID(ctx, stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: workflow step %s", ErrNotFound, stepID)
		}
		return nil, fmt.Errorf("failed to load workflow step: %w", err)
	}

	typeChanged := req.StepType != "" && req.StepType != step.StepType
	if typeChanged {
		step.StepType = req.StepType
	}
	if req.Description != nil {
		step.Description = *req.Description
	}
	if req.IsActive != nil {
		step.IsActive = *req.IsActive
	}

	// Revalidate the assigned value whenever the type changed or a new value
	// was supplied. ValidateAssignedValue substitutes the first valid default
	// for anything outside the new type's option set.
	if typeChanged || req.AssignedValue != nil {
		candidate := step.AssignedValue
		if req.AssignedValue != nil {
			candidate = *req.AssignedValue
		}
		validated, valErr := s.resolver.ValidateAssignedValue(ctx, step.StepType, candidate)
		if valErr != nil {
			return nil, valErr
		}
		step.AssignedValue = validated
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.groups.UpdateStep(txCtx, step); saveErr != nil {
			return fmt.Errorf("failed to update workflow step: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"step_type":      step.StepType,
			"assigned_value": step.AssignedValue,
			"is_active":      step.IsActive,
		})
		return s.audit.Log(txCtx, &model.AuditLog{
			UserID:   actor,
			Action:   model.ActionUpdateWorkflowStep,
			EntityID: step.ID.String(),
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	return step, nil
}

func (s *workflowGroupService) ListStepOptions(ctx context.Context, stepType string) ([]StepOption, error) {
	if !model.ValidStepType(stepType) {
		return nil, fmt.Errorf("unknown step type: %s", stepType)
	}
	return s.resolver.ListOptions(ctx, stepType)
}

// validateStepOrders requires 1-based contiguous, unique step orders
func validateStepOrders(steps []CreateWorkflowStepRequest) error {
	seen := make(map[int]bool, len(steps))
	for _, step := range steps {
		if seen[step.StepOrder] {
			return fmt.Errorf("duplicate step order %d", step.StepOrder)
		}
		seen[step.StepOrder] = true
	}
	for i := 1; i <= len(steps); i++ {
		if !seen[i] {
			return fmt.Errorf("step orders must be contiguous starting at 1: missing %d", i)
		}
	}
	return nil
}
