package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GraceResult struct {
	Cleared    bool       `json:"cleared"`
	CompanyID  *uuid.UUID `json:"company_id,omitempty"`
	Liquidated bool       `json:"liquidated"`
}

// EvaluateGrace runs the grace check for the caller's own membership.
func EvaluateGrace(ctx context.Context, actor access.Identity) (GraceResult, error) {
	if actor.Anonymous() {
		return GraceResult{}, ErrUnauthorized
	}
	return evaluateGrace(ctx, actor.UserID, database.Now())
}

// evaluateGrace detaches userID from its branch once the grace deadline has passed and, when
// that leaves the company without therapists, dissolves the company. Detachment and
// dissolution share one transaction; on failure the grace deadline stays in place so the
// evaluation can simply be retried.
func evaluateGrace(ctx context.Context, userID uuid.UUID, now time.Time) (GraceResult, error) {
	var result GraceResult
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&user, "id = ?", userID).Error; err != nil {
			if isRecordNotFound(err) {
				return notFound("user")
			}
			return err
		}
		if user.OrgGraceUntil == nil || !user.OrgGraceUntil.Before(now) {
			return nil
		}

		var companyID *uuid.UUID
		if user.BranchID != nil {
			var branch models.Branch
			err := tx.Select("id", "company_id").First(&branch, "id = ?", *user.BranchID).Error
			if err != nil && !isRecordNotFound(err) {
				return err
			}
			if err == nil {
				companyID = &branch.CompanyID
			}
		}

		detach := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Updates(map[string]any{"branch_id": nil, "org_grace_until": nil})
		if detach.Error != nil {
			return detach.Error
		}
		result = GraceResult{Cleared: true, CompanyID: companyID}
		if companyID == nil {
			return nil
		}

		remaining, err := remainingTherapists(tx, *companyID, user.ID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		if err := dissolveCompany(*companyID, now).Apply(tx); err != nil {
			return err
		}
		result.Liquidated = true
		return nil
	})
	if err != nil {
		return GraceResult{}, storeErr("evaluate grace", err)
	}

	if result.Cleared {
		slog.Info("org grace expired, member detached",
			"user_id", userID, "company_id", result.CompanyID, "liquidated", result.Liquidated)
	}
	return result, nil
}

// remainingTherapists counts therapists other than exclude still attached to a branch of
// companyID.
func remainingTherapists(tx *gorm.DB, companyID, exclude uuid.UUID) (int64, error) {
	var n int64
	branches := tx.Model(&models.Branch{}).Select("id").Where("company_id = ?", companyID)
	err := tx.Model(&models.User{}).
		Where("role = ? AND id <> ? AND branch_id IN (?)", models.RoleLogoped, exclude, branches).
		Count(&n).Error
	return n, err
}

// dissolveCompany lists the statements that remove an empty company. The ops are applied in
// order on the caller's transaction.
func dissolveCompany(companyID uuid.UUID, now time.Time) *database.UnitOfWork {
	uow := &database.UnitOfWork{}
	uow.Add("mark company liquidated", func(tx *gorm.DB) error {
		return tx.Model(&models.Company{}).
			Where("id = ? AND liquidated_at IS NULL", companyID).
			Update("liquidated_at", now).Error
	})
	uow.Add("detach remaining members", func(tx *gorm.DB) error {
		branches := tx.Model(&models.Branch{}).Select("id").Where("company_id = ?", companyID)
		return tx.Model(&models.User{}).
			Where("branch_id IN (?)", branches).
			Updates(map[string]any{"branch_id": nil, "org_grace_until": nil}).Error
	})
	uow.Add("delete branches", func(tx *gorm.DB) error {
		return tx.Where("company_id = ?", companyID).Delete(&models.Branch{}).Error
	})
	uow.Add("delete company", func(tx *gorm.DB) error {
		return tx.Where("id = ?", companyID).Delete(&models.Company{}).Error
	})
	return uow
}

// StartGrace schedules the removal of a member from their organization after ORG_GRACE_PERIOD.
func StartGrace(ctx context.Context, actor access.Identity, userID uuid.UUID) (time.Time, error) {
	if err := authorize(actor, access.Roles(access.OrgAdmins...)); err != nil {
		return time.Time{}, err
	}

	grace := config.Duration("ORG_GRACE_PERIOD")
	if grace <= 0 {
		grace = 72 * time.Hour
	}
	until := database.Now().Add(grace)

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if isRecordNotFound(err) {
				return notFound("user")
			}
			return err
		}
		if user.BranchID == nil {
			return invalid("user %s is not a member of any branch", userID)
		}
		if user.OrgGraceUntil != nil {
			until = *user.OrgGraceUntil
			return nil
		}
		if err := tx.Model(&user).Update("org_grace_until", until).Error; err != nil {
			return err
		}
		return audit(tx, actor, "org.member_removed", "user", user.ID, map[string]any{
			"branch_id":   user.BranchID,
			"grace_until": until,
		})
	})
	if err != nil {
		return time.Time{}, storeErr("start grace", err)
	}

	slog.Info("org grace started", "user_id", userID, "until", until, "actor_id", actor.UserID)
	return until, nil
}

// SweepExpiredGrace evaluates every member whose grace deadline has passed. Failures are
// logged and left for the next sweep.
func SweepExpiredGrace(ctx context.Context) (int, error) {
	now := database.Now()
	var ids []uuid.UUID
	if err := database.DB.WithContext(ctx).Model(&models.User{}).
		Where("org_grace_until IS NOT NULL AND org_grace_until < ?", now).
		Pluck("id", &ids).Error; err != nil {
		return 0, storeErr("find expired grace", err)
	}

	cleared := 0
	for _, id := range ids {
		res, err := evaluateGrace(ctx, id, now)
		if err != nil {
			slog.Error("grace evaluation failed", "user_id", id, "error", err)
			continue
		}
		if res.Cleared {
			cleared++
		}
	}
	return cleared, nil
}
