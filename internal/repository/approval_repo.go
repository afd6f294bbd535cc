package repository

import (
	"context"
	"time"

	"servicehub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingApprovalRow is one entry of a user's pending-approvals listing,
// joined with enough workflow and entity metadata for display.
type PendingApprovalRow struct {
	ApprovalID    uuid.UUID `json:"approval_id"`
	WorkflowID    uuid.UUID `json:"workflow_id"`
	EntityType    string    `json:"entity_type"`
	EntityID      uuid.UUID `json:"entity_id"`
	EntityName    string    `json:"entity_name"`
	Level         int       `json:"level"`
	SubmittedBy   uuid.UUID `json:"submitted_by"`
	SubmitterName string    `json:"submitter_name"`
	Comments      string    `json:"comments"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ApprovalRepository is the persistence boundary of the workflow state
// machine: workflow rows, their level-ordered approval records, and the
// guarded terminal transition.
type ApprovalRepository interface {
	CreateWorkflow(ctx context.Context, wf *model.ApprovalWorkflow) error
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error)
	// GetWorkflowForUpdate loads the workflow row under a row-level lock.
	// Callers must be inside a transaction; this serializes concurrent
	// processing actions on the same workflow.
	GetWorkflowForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error)
	// CompleteWorkflow conditionally moves a pending workflow to a terminal
	// status. Returns false when the workflow was already terminal, so the
	// caller can make completion side effects fire at most once.
	CompleteWorkflow(ctx context.Context, id uuid.UUID, status string, completedAt time.Time) (bool, error)

	CreateTaskApprovals(ctx context.Context, records []model.TaskApproval) error
	GetTaskApprovalByID(ctx context.Context, id string) (*model.TaskApproval, error)
	// ActionTaskApproval applies an approve/reject outcome to a record. The
	// update is scoped to (record id, approver id, status pending): a
	// non-designated actor or an already-actioned record affects zero rows.
	ActionTaskApproval(ctx context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error)
	CountPendingTaskApprovals(ctx context.Context, workflowID uuid.UUID) (int64, error)

	CreateProjectApprovals(ctx context.Context, records []model.ProjectApproval) error
	GetProjectApprovalByID(ctx context.Context, id string) (*model.ProjectApproval, error)
	ActionProjectApproval(ctx context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error)
	CountPendingProjectApprovals(ctx context.Context, workflowID uuid.UUID) (int64, error)

	// ListPendingForUser unions task- and project-scoped pending records for
	// one approver, newest submissions first.
	ListPendingForUser(ctx context.Context, approverID uuid.UUID) ([]PendingApprovalRow, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) CreateWorkflow(ctx context.Context, wf *model.ApprovalWorkflow) error {
	return GetDB(ctx, r.db).Create(wf).Error
}

func (r *approvalRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error) {
	var wf model.ApprovalWorkflow
	if err := GetDB(ctx, r.db).First(&wf, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *approvalRepository) GetWorkflowForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error) {
	var wf model.ApprovalWorkflow
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wf, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *approvalRepository) CompleteWorkflow(ctx context.Context, id uuid.UUID, status string, completedAt time.Time) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.ApprovalWorkflow{}).
		Where("id = ? AND status = ?", id, model.ApprovalPending).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *approvalRepository) CreateTaskApprovals(ctx context.Context, records []model.TaskApproval) error {
	if len(records) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&records).Error
}

func (r *approvalRepository) GetTaskApprovalByID(ctx context.Context, id string) (*model.TaskApproval, error) {
	var rec model.TaskApproval
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *approvalRepository) ActionTaskApproval(ctx context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.TaskApproval{}).
		Where("id = ? AND approver_id = ? AND status = ?", id, approverID, model.ApprovalPending).
		Updates(map[string]interface{}{
			"status":      status,
			"comments":    comments,
			"approved_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *approvalRepository) CountPendingTaskApprovals(ctx context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.TaskApproval{}).
		Where("workflow_id = ? AND status = ?", workflowID, model.ApprovalPending).
		Count(&count).Error
	return count, err
}

func (r *approvalRepository) CreateProjectApprovals(ctx context.Context, records []model.ProjectApproval) error {
	if len(records) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&records).Error
}

func (r *approvalRepository) GetProjectApprovalByID(ctx context.Context, id string) (*model.ProjectApproval, error) {
	var rec model.ProjectApproval
	if err := GetDB(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *approvalRepository) ActionProjectApproval(ctx context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.ProjectApproval{}).
		Where("id = ? AND approver_id = ? AND status = ?", id, approverID, model.ApprovalPending).
		Updates(map[string]interface{}{
			"status":      status,
			"comments":    comments,
			"approved_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *approvalRepository) CountPendingProjectApprovals(ctx context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.ProjectApproval{}).
		Where("workflow_id = ? AND status = ?", workflowID, model.ApprovalPending).
		Count(&count).Error
	return count, err
}

func (r *approvalRepository) ListPendingForUser(ctx context.Context, approverID uuid.UUID) ([]PendingApprovalRow, error) {
	var rows []PendingApprovalRow
	err := GetDB(ctx, r.db).Raw(`
		SELECT ta.id          AS approval_id,
		       ta.workflow_id AS workflow_id,
		       'task'         AS entity_type,
		       ta.task_id     AS entity_id,
		       t.name         AS entity_name,
		       ta.level       AS level,
		       w.submitted_by AS submitted_by,
		       u.username     AS submitter_name,
		       w.comments     AS comments,
		       w.submitted_at AS submitted_at
		FROM task_approvals ta
		INNER JOIN approval_workflows w ON w.id = ta.workflow_id
		INNER JOIN tasks t ON t.id = ta.task_id
		INNER JOIN users u ON u.id = w.submitted_by
		WHERE ta.approver_id = ? AND ta.status = ? AND w.status = ?
		UNION ALL
		SELECT pa.id          AS approval_id,
		       pa.workflow_id AS workflow_id,
		       'project'      AS entity_type,
		       pa.project_id  AS entity_id,
		       p.name         AS entity_name,
		       pa.level       AS level,
		       w.submitted_by AS submitted_by,
		       u.username     AS submitter_name,
		       w.comments     AS comments,
		       w.submitted_at AS submitted_at
		FROM project_approvals pa
		INNER JOIN approval_workflows w ON w.id = pa.workflow_id
		INNER JOIN projects p ON p.id = pa.project_id
		INNER JOIN users u ON u.id = w.submitted_by
		WHERE pa.approver_id = ? AND pa.status = ? AND w.status = ?
		ORDER BY submitted_at DESC
	`, approverID, model.ApprovalPending, model.ApprovalPending,
		approverID, model.ApprovalPending, model.ApprovalPending).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
