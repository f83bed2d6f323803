package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	LessonScheduled = "SCHEDULED"
	LessonDone      = "DONE"
	LessonCancelled = "CANCELLED"
)

const (
	PaidByCash     = "CASH"
	PaidByCard     = "CARD"
	PaidByTransfer = "TRANSFER"
)

type Lesson struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	LogopedID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"logoped_id"`
	ParentID   *uuid.UUID `gorm:"type:uuid" json:"parent_id"`
	BranchID   *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	StartsAt   time.Time  `gorm:"not null" json:"starts_at"`
	PriceMinor int64      `gorm:"not null" json:"price"`
	Status     string     `gorm:"size:20;not null;default:'SCHEDULED'" json:"status"`
	PaidBy     string     `gorm:"size:20" json:"paid_by"`
	SettledAt  *time.Time `json:"settled_at"`

	Logoped User `gorm:"foreignkey:LogopedID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaidInCash reports whether the therapist collected the lesson price in person.
func (l Lesson) PaidInCash() bool { return l.PaidBy == PaidByCash }
