package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Workflow / approval record status enum constants
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Workflow entity type enum constants
const (
	EntityTypeTask    = "task"
	EntityTypeProject = "project"
)

// DefaultApprovalTypeID is used when a submission does not name a type
const DefaultApprovalTypeID = 1

// ApprovalType is a small lookup table categorizing submissions
// (e.g. standard, budget, expedited)
type ApprovalType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ApprovalWorkflow is one approval instance attached to a single submitted
// entity. Created exactly once per submission, mutated only by the engine,
// never deleted (audit trail).
type ApprovalWorkflow struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType     string        `gorm:"type:varchar(20);not null;index" json:"entity_type"` // task | project
	EntityID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"entity_id"`
	SubmittedBy    uuid.UUID     `gorm:"type:uuid;not null;index" json:"submitted_by"`
	Submitter      *User         `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	ApprovalTypeID uint          `gorm:"not null;default:1" json:"approval_type_id"`
	ApprovalType   *ApprovalType `gorm:"foreignKey:ApprovalTypeID" json:"approval_type,omitempty"`
	Status         string        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Comments       string        `gorm:"type:text" json:"comments"`
	SubmittedAt    time.Time     `gorm:"autoCreateTime;index" json:"submitted_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
}

// TaskApproval is one level of a task workflow's approval chain. Levels are
// contiguous starting at 1. Every level must be approved for the workflow to
// complete; a rejection at any level short-circuits it.
type TaskApproval struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkflowID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_task_wf_level" json:"workflow_id"`
	TaskID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"task_id"`
	Level      int        `gorm:"not null;uniqueIndex:idx_task_wf_level" json:"level"`
	ApproverID uuid.UUID  `gorm:"type:uuid;not null;index" json:"approver_id"`
	Approver   *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Comments   string     `gorm:"type:text" json:"comments"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// ProjectApproval mirrors TaskApproval for project submissions and adds the
// budget figure the approver signed off on.
type ProjectApproval struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkflowID     uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_project_wf_level" json:"workflow_id"`
	ProjectID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"project_id"`
	Level          int                 `gorm:"not null;uniqueIndex:idx_project_wf_level" json:"level"`
	ApproverID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"approver_id"`
	Approver       *User               `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status         string              `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Comments       string              `gorm:"type:text" json:"comments"`
	BudgetApproved decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"budget_approved"`
	ApprovedAt     *time.Time          `json:"approved_at"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
}
