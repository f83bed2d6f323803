package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleParent        = "PARENT"
	RoleLogoped       = "LOGOPED"
	RoleBranchManager = "BRANCH_MANAGER"
	RoleAccountant    = "ACCOUNTANT"
	RoleAdmin         = "ADMIN"
	RoleSuperAdmin    = "SUPER_ADMIN"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'PARENT';index" json:"role"`

	BranchID      *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	OrgGraceUntil *time.Time `gorm:"index" json:"org_grace_until"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`

	Branch *Branch `gorm:"foreignkey:BranchID" json:"branch,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
