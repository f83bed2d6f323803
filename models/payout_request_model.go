package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PayoutPending   = "PENDING"
	PayoutApproved  = "APPROVED"
	PayoutRejected  = "REJECTED"
	PayoutCancelled = "CANCELLED"
)

// PayoutRequest snapshots the therapist's ledger figures at creation. The amounts are never
// recomputed; only Status and the decision fields change, and only while PENDING.
type PayoutRequest struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Reference         string     `gorm:"size:16;not null;unique" json:"reference"`
	LogopedID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"logoped_id"`
	BalanceAtRequest  int64      `gorm:"not null" json:"balance_at_request"`
	CashHeldAtRequest int64      `gorm:"not null" json:"cash_held_at_request"`
	PayoutsAtRequest  int64      `gorm:"not null" json:"payouts_at_request"`
	FinalAmount       int64      `gorm:"not null" json:"final_amount"`
	Status            string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	CreatedByID       uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`
	DecidedByID       *uuid.UUID `gorm:"type:uuid" json:"decided_by_id"`
	DecidedAt         *time.Time `json:"decided_at"`
	Note              *string    `gorm:"type:text" json:"note"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`

	Logoped User `gorm:"foreignkey:LogopedID" json:"-"`
}

func (p PayoutRequest) IsTerminal() bool { return p.Status != PayoutPending }
