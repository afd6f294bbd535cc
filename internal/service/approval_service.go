package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"servicehub/internal/model"
	"servicehub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier publishes approval events to connected clients. The engine treats
// it as fire-and-forget; a nil notifier disables notifications.
type Notifier interface {
	Publish(event string, payload interface{})
}

// Notification event names
const (
	EventApprovalSubmitted = "approval.submitted"
	EventApprovalApproved  = "approval.approved"
	EventApprovalRejected  = "approval.rejected"
)

// --- DTOs ---

type SubmitApprovalRequest struct {
	ApprovalType *uint  `json:"approval_type"`
	Comments     string `json:"comments"`
	// WorkflowGroupID switches approver resolution from the submitter's
	// superior chain to a service catalog workflow group.
	WorkflowGroupID string `json:"workflow_group_id"`
	// BudgetRequested applies to project submissions only.
	BudgetRequested *decimal.Decimal `json:"budget_requested"`
}

type ProcessApprovalRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

type SubmitApprovalResponse struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Levels     int       `json:"levels"`
}

type ProcessApprovalResponse struct {
	ApprovalID     uuid.UUID `json:"approval_id"`
	WorkflowID     uuid.UUID `json:"workflow_id"`
	RecordStatus   string    `json:"record_status"`
	WorkflowStatus string    `json:"workflow_status"`
}

// --- Interface ---

// ApprovalService is the approval workflow state machine. Workflows move
// pending -> approved | rejected and never leave a terminal state.
type ApprovalService interface {
	GetHierarchy(ctx context.Context, userID string) ([]HierarchyLevel, error)
	SubmitTaskApproval(ctx context.Context, taskID, submitterID string, req SubmitApprovalRequest) (*SubmitApprovalResponse, error)
	SubmitProjectApproval(ctx context.Context, projectID, submitterID string, req SubmitApprovalRequest) (*SubmitApprovalResponse, error)
	ProcessTaskApproval(ctx context.Context, approvalID, actorID string, req ProcessApprovalRequest) (*ProcessApprovalResponse, error)
	ProcessProjectApproval(ctx context.Context, approvalID, actorID string, req ProcessApprovalRequest) (*ProcessApprovalResponse, error)
	ListPendingForUser(ctx context.Context, userID string) ([]repository.PendingApprovalRow, error)
}

type approvalService struct {
	approvals repository.ApprovalRepository
	tasks     repository.TaskRepository
	projects  repository.ProjectRepository
	audit     repository.AuditRepository
	hierarchy HierarchyService
	steps     StepResolver
	txm       repository.TransactionManager
	notifier  Notifier
}

func NewApprovalService(
	approvals repository.ApprovalRepository,
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	audit repository.AuditRepository,
	hierarchy HierarchyService,
	steps StepResolver,
	txm repository.TransactionManager,
	notifier Notifier,
) ApprovalService {
	return &approvalService{
		approvals: approvals,
		tasks:     tasks,
		projects:  projects,
		audit:     audit,
		hierarchy: hierarchy,
		steps:     steps,
		txm:       txm,
		notifier:  notifier,
	}
}

// --- Implementation ---

func (s *approvalService) GetHierarchy(ctx context.Context, userID string) ([]HierarchyLevel, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return s.hierarchy.Resolve(ctx, userID)
}

func (s *approvalService) SubmitTaskApproval(ctx context.Context, taskID, submitterID string, req SubmitApprovalRequest) (*SubmitApprovalResponse, error) {
	tID, err := uuid.Parse(taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id", ErrInvalidInput)
	}
	subID, err := uuid.Parse(submitterID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid submitter id", ErrInvalidInput)
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	approvers, err := s.resolveApprovers(ctx, subID, req.WorkflowGroupID)
	if err != nil {
		return nil, err
	}

	wf := &model.ApprovalWorkflow{
		EntityType:     model.EntityTypeTask,
		EntityID:       tID,
		SubmittedBy:    subID,
		ApprovalTypeID: approvalTypeID(req.ApprovalType),
		Status:         model.ApprovalPending,
		Comments:       req.Comments,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.approvals.CreateWorkflow(txCtx, wf); createErr != nil {
			return fmt.Errorf("failed to create workflow: %w", createErr)
		}

		records := make([]model.TaskApproval, 0, len(approvers))
		for i, approver := range approvers {
			records = append(records, model.TaskApproval{
				WorkflowID: wf.ID,
				TaskID:     tID,
				Level:      i + 1,
				ApproverID: approver.ID,
				Status:     model.ApprovalPending,
			})
		}
		if createErr := s.approvals.CreateTaskApprovals(txCtx, records); createErr != nil {
			return fmt.Errorf("failed to create approval records: %w", createErr)
		}

		if updateErr := s.tasks.UpdateStatus(txCtx, taskID, model.EntityStatusPendingApproval); updateErr != nil {
			return fmt.Errorf("failed to update task status: %w", updateErr)
		}

		return s.logAudit(txCtx, &subID, model.ActionSubmitTaskApproval, wf.ID.String(), task.Name, map[string]interface{}{
			"task_id": taskID,
			"levels":  len(approvers),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventApprovalSubmitted, map[string]interface{}{
		"workflow_id": wf.ID,
		"entity_type": model.EntityTypeTask,
		"entity_id":   tID,
		"entity_name": task.Name,
		"levels":      len(approvers),
	})

	return &SubmitApprovalResponse{WorkflowID: wf.ID, Levels: len(approvers)}, nil
}

func (s *approvalService) SubmitProjectApproval(ctx context.Context, projectID, submitterID string, req SubmitApprovalRequest) (*SubmitApprovalResponse, error) {
	pID, err := uuid.Parse(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id", ErrInvalidInput)
	}
	subID, err := uuid.Parse(submitterID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid submitter id", ErrInvalidInput)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	approvers, err := s.resolveApprovers(ctx, subID, req.WorkflowGroupID)
	if err != nil {
		return nil, err
	}

	// The amount under approval: explicit on the submission, else the
	// project's stored budget.
	budget := project.Budget
	if req.BudgetRequested != nil {
		budget = *req.BudgetRequested
	}

	wf := &model.ApprovalWorkflow{
		EntityType:     model.EntityTypeProject,
		EntityID:       pID,
		SubmittedBy:    subID,
		ApprovalTypeID: approvalTypeID(req.ApprovalType),
		Status:         model.ApprovalPending,
		Comments:       req.Comments,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.approvals.CreateWorkflow(txCtx, wf); createErr != nil {
			return fmt.Errorf("failed to create workflow: %w", createErr)
		}

		records := make([]model.ProjectApproval, 0, len(approvers))
		for i, approver := range approvers {
			records = append(records, model.ProjectApproval{
				WorkflowID:     wf.ID,
				ProjectID:      pID,
				Level:          i + 1,
				ApproverID:     approver.ID,
				Status:         model.ApprovalPending,
				BudgetApproved: decimal.NullDecimal{Decimal: budget, Valid: true},
			})
		}
		if createErr := s.approvals.CreateProjectApprovals(txCtx, records); createErr != nil {
			return fmt.Errorf("failed to create approval records: %w", createErr)
		}

		if updateErr := s.projects.UpdateStatus(txCtx, projectID, model.EntityStatusPendingApproval); updateErr != nil {
			return fmt.Errorf("failed to update project status: %w", updateErr)
		}

		return s.logAudit(txCtx, &subID, model.ActionSubmitProjectApproval, wf.ID.String(), project.Name, map[string]interface{}{
			"project_id":       projectID,
			"levels":           len(approvers),
			"budget_requested": budget.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventApprovalSubmitted, map[string]interface{}{
		"workflow_id": wf.ID,
		"entity_type": model.EntityTypeProject,
		"entity_id":   pID,
		"entity_name": project.Name,
		"levels":      len(approvers),
	})

	return &SubmitApprovalResponse{WorkflowID: wf.ID, Levels: len(approvers)}, nil
}

func (s *approvalService) ProcessTaskApproval(ctx context.Context, approvalID, actorID string, req ProcessApprovalRequest) (*ProcessApprovalResponse, error) {
	aID, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid approval id", ErrInvalidInput)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	recordStatus, err := statusForAction(req.Action)
	if err != nil {
		return nil, err
	}

	var resp *ProcessApprovalResponse
	var terminalEvent string
	var eventPayload map[string]interface{}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rec, findErr := s.approvals.GetTaskApprovalByID(txCtx, approvalID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: approval record %s", ErrNotFound, approvalID)
			}
			return fmt.Errorf("failed to load approval record: %w", findErr)
		}
		if rec.ApproverID != actor {
			return ErrNotApprover
		}

		// Lock the workflow row: serializes concurrent actions on different
		// levels of the same workflow.
		wf, lockErr := s.approvals.GetWorkflowForUpdate(txCtx, rec.WorkflowID)
		if lockErr != nil {
			return fmt.Errorf("failed to lock workflow: %w", lockErr)
		}
		if wf.Status != model.ApprovalPending {
			return fmt.Errorf("%w: workflow is already %s", ErrAlreadyProcessed, wf.Status)
		}

		now := time.Now()
		applied, actionErr := s.approvals.ActionTaskApproval(txCtx, aID, actor, recordStatus, req.Comments, now)
		if actionErr != nil {
			return fmt.Errorf("failed to update approval record: %w", actionErr)
		}
		if !applied {
			return fmt.Errorf("%w: record is no longer pending", ErrAlreadyProcessed)
		}

		if auditErr := s.logAudit(txCtx, &actor, actionAuditName(recordStatus), rec.ID.String(), "", map[string]interface{}{
			"workflow_id": rec.WorkflowID,
			"level":       rec.Level,
			"comments":    req.Comments,
		}); auditErr != nil {
			return auditErr
		}

		workflowStatus := model.ApprovalPending
		if recordStatus == model.ApprovalRejected {
			// Rejection at any level short-circuits the workflow. Other
			// pending records keep their stored status (audit history).
			flipped, completeErr := s.completeWorkflow(txCtx, wf.ID, model.ApprovalRejected, now, &actor)
			if completeErr != nil {
				return completeErr
			}
			workflowStatus = model.ApprovalRejected
			if flipped {
				if updateErr := s.tasks.UpdateStatus(txCtx, rec.TaskID.String(), model.EntityStatusRejected); updateErr != nil {
					return fmt.Errorf("failed to update task status: %w", updateErr)
				}
				terminalEvent = EventApprovalRejected
				eventPayload = terminalPayload(wf, model.EntityTypeTask, rec.TaskID)
			}
		} else {
			remaining, countErr := s.approvals.CountPendingTaskApprovals(txCtx, wf.ID)
			if countErr != nil {
				return fmt.Errorf("failed to count pending records: %w", countErr)
			}
			if remaining == 0 {
				flipped, completeErr := s.completeWorkflow(txCtx, wf.ID, model.ApprovalApproved, now, &actor)
				if completeErr != nil {
					return completeErr
				}
				workflowStatus = model.ApprovalApproved
				if flipped {
					if updateErr := s.tasks.UpdateStatus(txCtx, rec.TaskID.String(), model.EntityStatusApproved); updateErr != nil {
						return fmt.Errorf("failed to update task status: %w", updateErr)
					}
					terminalEvent = EventApprovalApproved
					eventPayload = terminalPayload(wf, model.EntityTypeTask, rec.TaskID)
				}
			}
		}

		resp = &ProcessApprovalResponse{
			ApprovalID:     aID,
			WorkflowID:     wf.ID,
			RecordStatus:   recordStatus,
			WorkflowStatus: workflowStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if terminalEvent != "" {
		s.publish(terminalEvent, eventPayload)
	}
	return resp, nil
}

func (s *approvalService) ProcessProjectApproval(ctx context.Context, approvalID, actorID string, req ProcessApprovalRequest) (*ProcessApprovalResponse, error) {
	aID, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid approval id", ErrInvalidInput)
	}
	actor, err := uuid.Parse(actorID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	recordStatus, err := statusForAction(req.Action)
	if err != nil {
		return nil, err
	}

	var resp *ProcessApprovalResponse
	var terminalEvent string
	var eventPayload map[string]interface{}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rec, findErr := s.approvals.GetProjectApprovalByID(txCtx, approvalID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: approval record %s", ErrNotFound, approvalID)
			}
			return fmt.Errorf("failed to load approval record: %w", findErr)
		}
		if rec.ApproverID != actor {
			return ErrNotApprover
		}

		wf, lockErr := s.approvals.GetWorkflowForUpdate(txCtx, rec.WorkflowID)
		if lockErr != nil {
			return fmt.Errorf("failed to lock workflow: %w", lockErr)
		}
		if wf.Status != model.ApprovalPending {
			return fmt.Errorf("%w: workflow is already %s", ErrAlreadyProcessed, wf.Status)
		}

		now := time.Now()
		applied, actionErr := s.approvals.ActionProjectApproval(txCtx, aID, actor, recordStatus, req.Comments, now)
		if actionErr != nil {
			return fmt.Errorf("failed to update approval record: %w", actionErr)
		}
		if !applied {
			return fmt.Errorf("%w: record is no longer pending", ErrAlreadyProcessed)
		}

		if auditErr := s.logAudit(txCtx, &actor, actionAuditName(recordStatus), rec.ID.String(), "", map[string]interface{}{
			"workflow_id": rec.WorkflowID,
			"level":       rec.Level,
			"comments":    req.Comments,
		}); auditErr != nil {
			return auditErr
		}

		workflowStatus := model.ApprovalPending
		if recordStatus == model.ApprovalRejected {
			flipped, completeErr := s.completeWorkflow(txCtx, wf.ID, model.ApprovalRejected, now, &actor)
			if completeErr != nil {
				return completeErr
			}
			workflowStatus = model.ApprovalRejected
			if flipped {
				if updateErr := s.projects.UpdateStatus(txCtx, rec.ProjectID.String(), model.EntityStatusRejected); updateErr != nil {
					return fmt.Errorf("failed to update project status: %w", updateErr)
				}
				terminalEvent = EventApprovalRejected
				eventPayload = terminalPayload(wf, model.EntityTypeProject, rec.ProjectID)
			}
		} else {
			remaining, countErr := s.approvals.CountPendingProjectApprovals(txCtx, wf.ID)
			if countErr != nil {
				return fmt.Errorf("failed to count pending records: %w", countErr)
			}
			if remaining == 0 {
				flipped, completeErr := s.completeWorkflow(txCtx, wf.ID, model.ApprovalApproved, now, &actor)
				if completeErr != nil {
					return completeErr
				}
				workflowStatus = model.ApprovalApproved
				if flipped {
					if updateErr := s.projects.UpdateStatus(txCtx, rec.ProjectID.String(), model.EntityStatusApproved); updateErr != nil {
						return fmt.Errorf("failed to update project status: %w", updateErr)
					}
					terminalEvent = EventApprovalApproved
					eventPayload = terminalPayload(wf, model.EntityTypeProject, rec.ProjectID)
				}
			}
		}

		resp = &ProcessApprovalResponse{
			ApprovalID:     aID,
			WorkflowID:     wf.ID,
			RecordStatus:   recordStatus,
			WorkflowStatus: workflowStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if terminalEvent != "" {
		s.publish(terminalEvent, eventPayload)
	}
	return resp, nil
}

func (s *approvalService) ListPendingForUser(ctx context.Context, userID string) ([]repository.PendingApprovalRow, error) {
	uID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	rows, err := s.approvals.ListPendingForUser(ctx, uID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	return rows, nil
}

// --- Helpers ---

// resolveApprovers returns the level-ordered designated approvers for a
// submission: workflow group steps when a group is named, otherwise the
// submitter's superior chain. An empty result is a creation failure.
func (s *approvalService) resolveApprovers(ctx context.Context, submitterID uuid.UUID, groupID string) ([]Approver, error) {
	if groupID != "" {
		return s.steps.ResolveGroup(ctx, groupID, submitterID)
	}

	chain, err := s.hierarchy.Resolve(ctx, submitterID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hierarchy: %w", err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w for step 1", ErrNoApprovers)
	}

	approvers := make([]Approver, 0, len(chain))
	for _, lvl := range chain {
		approvers = append(approvers, Approver{ID: lvl.ApproverID, Name: lvl.ApproverName})
	}
	return approvers, nil
}

// completeWorkflow applies the guarded terminal transition and writes its
// audit row only when the transition actually fired.
func (s *approvalService) completeWorkflow(ctx context.Context, workflowID uuid.UUID, status string, at time.Time, actor *uuid.UUID) (bool, error) {
	flipped, err := s.approvals.CompleteWorkflow(ctx, workflowID, status, at)
	if err != nil {
		return false, fmt.Errorf("failed to complete workflow: %w", err)
	}
	if !flipped {
		return false, nil
	}

	action := model.ActionWorkflowApproved
	if status == model.ApprovalRejected {
		action = model.ActionWorkflowRejected
	}
	if auditErr := s.logAudit(ctx, actor, action, workflowID.String(), "", map[string]interface{}{
		"status": status,
	}); auditErr != nil {
		return false, auditErr
	}
	return true, nil
}

func (s *approvalService) logAudit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *approvalService) publish(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(event, payload)
	}
}

func approvalTypeID(requested *uint) uint {
	if requested != nil && *requested > 0 {
		return *requested
	}
	return model.DefaultApprovalTypeID
}

func statusForAction(action string) (string, error) {
	switch action {
	case "approve":
		return model.ApprovalApproved, nil
	case "reject":
		return model.ApprovalRejected, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidAction, action)
	}
}

func actionAuditName(recordStatus string) string {
	if recordStatus == model.ApprovalRejected {
		return model.ActionRejectRecord
	}
	return model.ActionApproveRecord
}

func terminalPayload(wf *model.ApprovalWorkflow, entityType string, entityID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"workflow_id": wf.ID,
		"entity_type": entityType,
		"entity_id":   entityID,
	}
}
