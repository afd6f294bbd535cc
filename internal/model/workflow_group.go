package model

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStep type enum constants. The set is closed: step resolution
// dispatches exhaustively over these four values.
const (
	StepTypeRole         = "role"          // all active users holding the role named by AssignedValue
	StepTypeSpecificUser = "specific_user" // the single user identified by AssignedValue
	StepTypeSuperior     = "superior"      // the submitter's direct superior
	StepTypeTeam         = "team"          // the team identified by AssignedValue (leader preferred)
)

// ValidStepType reports whether t is a member of the closed step-type set
func ValidStepType(t string) bool {
	switch t {
	case StepTypeRole, StepTypeSpecificUser, StepTypeSuperior, StepTypeTeam:
		return true
	}
	return false
}

// WorkflowGroup is a named approval-chain configuration owned by a service
// catalog entry. Its steps are expanded into concrete approvers at submission
// time.
type WorkflowGroup struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ServiceID   *uuid.UUID     `gorm:"type:uuid;index" json:"service_id"` // owning catalog entry (external)
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	Steps       []WorkflowStep `gorm:"foreignKey:GroupID" json:"steps,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// WorkflowStep is one level of a WorkflowGroup's approval chain. StepOrder is
// 1-based and unique within the group. The meaning of AssignedValue depends on
// StepType: role name, user id, team id, or empty for superior steps.
type WorkflowStep struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GroupID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_order" json:"group_id"`
	StepOrder     int       `gorm:"not null;uniqueIndex:idx_group_order" json:"step_order"`
	StepType      string    `gorm:"type:varchar(20);not null" json:"step_type"`
	AssignedValue string    `gorm:"type:varchar(255)" json:"assigned_value"`
	Description   string    `gorm:"type:text" json:"description"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
