package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Entity status values written by the approval engine. The engine is the sole
// writer of these three; every other status value is owned by the task board.
const (
	EntityStatusPendingApproval = "pending_approval"
	EntityStatusApproved        = "approved"
	EntityStatusRejected        = "rejected"
)

// Task is a unit of work that can be submitted for approval
type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"type:varchar(30);not null;default:'open';index" json:"status"`
	CreatedBy   *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	Creator     *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Project is a larger unit of work; submission may carry a requested budget
type Project struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Status      string          `gorm:"type:varchar(30);not null;default:'open';index" json:"status"`
	Budget      decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"budget"`
	CreatedBy   *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Creator     *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
