package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KindTherapistBalance = "THERAPIST_BALANCE"
	KindCashHeld         = "CASH_HELD"
	KindPayout           = "PAYOUT"
	KindSettlement       = "SETTLEMENT"
)

// Transaction is an immutable ledger row. Only ArchivedAt is ever updated.
// Amount is in minor currency units; THERAPIST_BALANCE, CASH_HELD and PAYOUT rows hold
// positive magnitudes and the kind decides the sign when balances are aggregated.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_transactions_user_kind_created,priority:1" json:"user_id"`
	Kind            string            `gorm:"size:32;not null;index:idx_transactions_user_kind_created,priority:2" json:"kind"`
	Amount          int64             `gorm:"not null" json:"amount"`
	LessonID        *uuid.UUID        `gorm:"type:uuid;index" json:"lesson_id"`
	PayoutRequestID *uuid.UUID        `gorm:"type:uuid;index" json:"payout_request_id"`
	Meta            datatypes.JSONMap `json:"meta"`
	CreatedAt       time.Time         `gorm:"not null;index:idx_transactions_user_kind_created,priority:3" json:"created_at"`
	ArchivedAt      *time.Time        `json:"archived_at"`
}

func IsLedgerKind(kind string) bool {
	switch kind {
	case KindTherapistBalance, KindCashHeld, KindPayout, KindSettlement:
		return true
	}
	return false
}
