package database

import (
	"log"

	"servicehub/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Department{},
		&model.Team{},
		&model.TeamMember{},
		&model.Task{},
		&model.Project{},
		&model.ApprovalType{},
		&model.ApprovalWorkflow{},
		&model.TaskApproval{},
		&model.ProjectApproval{},
		&model.WorkflowGroup{},
		&model.WorkflowStep{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	if err := seedDefaults(db); err != nil {
		log.Println("WARNING: Failed to seed default rows:", err)
	}

	return db, nil
}

// seedDefaults ensures the fixed default approval type exists so submissions
// that omit approval_type have a valid foreign key target.
func seedDefaults(db *gorm.DB) error {
	defaultType := model.ApprovalType{
		ID:          model.DefaultApprovalTypeID,
		Name:        "standard",
		Description: "Default approval type for submissions that do not name one",
		IsActive:    true,
	}
	return db.Where("id = ?", defaultType.ID).FirstOrCreate(&defaultType).Error
}
