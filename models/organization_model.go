package models

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`
	LiquidatedAt *time.Time `json:"liquidated_at"`

	Branches []Branch `gorm:"foreignkey:CompanyID" json:"branches,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Branch struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	ManagerID *uuid.UUID `gorm:"type:uuid;index" json:"manager_id"`

	CreatedAt time.Time `json:"created_at"`
}
