package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/cache"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordSettlementAdjustment books a signed SETTLEMENT entry for a therapist. Adjustments are
// listed with the settlement but do not move the payable balance.
func RecordSettlementAdjustment(ctx context.Context, actor access.Identity, userID uuid.UUID, amount int64, note string) (models.Transaction, error) {
	if err := authorize(actor, access.Roles(access.PayoutOperators...)); err != nil {
		return models.Transaction{}, err
	}
	if amount == 0 {
		return models.Transaction{}, invalid("adjustment amount must not be zero")
	}

	entry := models.Transaction{
		UserID: userID,
		Kind:   models.KindSettlement,
		Amount: amount,
		Meta:   datatypes.JSONMap{"note": strings.TrimSpace(note)},
	}
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		therapist, err := loadTherapist(tx, userID)
		if err != nil {
			return err
		}
		if therapist == nil {
			return notFound("therapist")
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return audit(tx, actor, "ledger.adjusted", "transaction", entry.ID, map[string]any{"amount": amount})
	})
	if err != nil {
		return models.Transaction{}, storeErr("record settlement adjustment", err)
	}

	slog.Info("settlement adjustment recorded", "user_id", userID, "amount", amount, "actor_id", actor.UserID)
	return entry, nil
}

// ListTransactions returns the ledger rows of userID inside p, oldest first. Archived rows are
// skipped unless includeArchived is set.
func ListTransactions(ctx context.Context, actor access.Identity, userID uuid.UUID, p Period, includeArchived bool) ([]models.Transaction, error) {
	if err := authorize(actor, access.OwnerOr(userID, access.PayoutOperators...)); err != nil {
		return nil, err
	}

	rows := []models.Transaction{}
	q := database.DB.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("archived_at IS NULL")
	}
	if err := scopePeriod(q, p).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, storeErr("list transactions", err)
	}
	return rows, nil
}

// ArchiveTransactions hides the rows of userID created before the cutoff from default listings.
// Archiving is a display flag; balances keep counting archived rows.
func ArchiveTransactions(ctx context.Context, actor access.Identity, userID uuid.UUID, before time.Time) (int64, error) {
	if err := authorize(actor, access.Roles(access.PayoutOperators...)); err != nil {
		return 0, err
	}
	if before.IsZero() {
		return 0, invalid("archive cutoff is required")
	}

	var archived int64
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND created_at < ? AND archived_at IS NULL", userID, before.UTC()).
			Update("archived_at", database.Now())
		if res.Error != nil {
			return res.Error
		}
		archived = res.RowsAffected
		if archived == 0 {
			return nil
		}
		return audit(tx, actor, "ledger.archived", "user", userID, map[string]any{
			"before": before,
			"count":  archived,
		})
	})
	if err != nil {
		return 0, storeErr("archive transactions", err)
	}

	if archived > 0 {
		cache.InvalidatePayoutView(ctx, userID)
	}
	return archived, nil
}
