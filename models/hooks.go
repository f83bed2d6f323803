package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated in Go so the same models migrate on postgres and sqlite.

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error          { assignID(&u.ID); return nil }
func (c *Company) BeforeCreate(tx *gorm.DB) error       { assignID(&c.ID); return nil }
func (b *Branch) BeforeCreate(tx *gorm.DB) error        { assignID(&b.ID); return nil }
func (l *Lesson) BeforeCreate(tx *gorm.DB) error        { assignID(&l.ID); return nil }
func (t *Transaction) BeforeCreate(tx *gorm.DB) error   { assignID(&t.ID); return nil }
func (p *PayoutRequest) BeforeCreate(tx *gorm.DB) error { assignID(&p.ID); return nil }
func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error    { assignID(&a.ID); return nil }
