package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Op is one statement of a unit of work. Ops run in order against the same transaction.
type Op struct {
	Name string
	Run  func(tx *gorm.DB) error
}

// UnitOfWork collects ops and executes them as a single transaction: either every op
// commits or none does.
type UnitOfWork struct {
	ops []Op
}

func (u *UnitOfWork) Add(name string, run func(tx *gorm.DB) error) {
	u.ops = append(u.ops, Op{Name: name, Run: run})
}

func (u *UnitOfWork) Len() int { return len(u.ops) }

// Names lists the ops in execution order.
func (u *UnitOfWork) Names() []string {
	names := make([]string, len(u.ops))
	for i, op := range u.ops {
		names[i] = op.Name
	}
	return names
}

// Execute runs the ops in order inside their own transaction on db.
func (u *UnitOfWork) Execute(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return u.Apply(tx)
	})
}

// Apply runs the ops on a transaction the caller already owns.
func (u *UnitOfWork) Apply(tx *gorm.DB) error {
	for _, op := range u.ops {
		if err := op.Run(tx); err != nil {
			return fmt.Errorf("%s: %w", op.Name, err)
		}
	}
	return nil
}
