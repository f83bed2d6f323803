package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditEntry struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	ActorID    *uuid.UUID        `gorm:"type:uuid;index" json:"actor_id"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:32;not null" json:"entity_type"`
	EntityID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"entity_id"`
	Meta       datatypes.JSONMap `json:"meta"`
	CreatedAt  time.Time         `json:"created_at"`
}
