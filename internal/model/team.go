package model

import (
	"time"

	"github.com/google/uuid"
)

// Team is a named group of users. A team may designate one of its members as
// leader; team-type workflow steps prefer the leader as sole approver.
type Team struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	LeaderID  *uuid.UUID `gorm:"type:uuid" json:"leader_id"`
	Leader    *User      `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TeamMember links users to teams (many-to-many)
type TeamMember struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
