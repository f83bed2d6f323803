package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/cache"
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonInput struct {
	LogopedID uuid.UUID
	ParentID  *uuid.UUID
	BranchID  *uuid.UUID
	StartsAt  time.Time
	Price     int64
}

func CreateLesson(ctx context.Context, actor access.Identity, in LessonInput) (models.Lesson, error) {
	if err := authorize(actor, access.TherapistOr(in.LogopedID, access.PayoutOperators...)); err != nil {
		return models.Lesson{}, err
	}
	if in.Price <= 0 {
		return models.Lesson{}, invalid("lesson price must be positive")
	}
	if in.StartsAt.IsZero() {
		return models.Lesson{}, invalid("lesson start time is required")
	}

	lesson := models.Lesson{
		LogopedID:  in.LogopedID,
		ParentID:   in.ParentID,
		BranchID:   in.BranchID,
		StartsAt:   in.StartsAt,
		PriceMinor: in.Price,
		Status:     models.LessonScheduled,
	}
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		therapist, err := loadTherapist(tx, in.LogopedID)
		if err != nil {
			return err
		}
		if therapist == nil {
			return notFound("therapist")
		}
		if lesson.BranchID == nil {
			lesson.BranchID = therapist.BranchID
		}
		return tx.Create(&lesson).Error
	})
	if err != nil {
		return models.Lesson{}, storeErr("create lesson", err)
	}
	return lesson, nil
}

// sharePercent reads THERAPIST_SHARE_PERCENT, keeping it inside 0..100.
func sharePercent() int64 {
	p := config.Int("THERAPIST_SHARE_PERCENT")
	if p < 0 || p > 100 {
		slog.Warn("THERAPIST_SHARE_PERCENT out of range, using 50", "value", p)
		return 50
	}
	return int64(p)
}

// TherapistShare is percent of price in minor units, rounded half away from zero.
func TherapistShare(price, percent int64) int64 {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func validPaidBy(paidBy string) bool {
	switch paidBy {
	case models.PaidByCash, models.PaidByCard, models.PaidByTransfer:
		return true
	}
	return false
}

// SettleLesson marks a lesson done and books the therapist's share. When the parent paid the
// therapist in cash, the full price is also booked as CASH_HELD so it is deducted from the
// next payout. A lesson settles at most once.
func SettleLesson(ctx context.Context, actor access.Identity, lessonID uuid.UUID, paidBy string) (models.Lesson, error) {
	if actor.Anonymous() {
		return models.Lesson{}, ErrUnauthorized
	}
	if !validPaidBy(paidBy) {
		return models.Lesson{}, invalid("unknown payment method %q", paidBy)
	}

	var lesson models.Lesson
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lesson, "id = ?", lessonID).Error; err != nil {
			if isRecordNotFound(err) {
				return notFound("lesson")
			}
			return err
		}
		if err := authorize(actor, access.TherapistOr(lesson.LogopedID, access.PayoutOperators...)); err != nil {
			return err
		}
		if lesson.Status == models.LessonCancelled {
			return fmt.Errorf("%w: lesson was cancelled", ErrConflict)
		}
		if lesson.SettledAt != nil {
			return fmt.Errorf("%w: lesson already settled", ErrConflict)
		}

		now := database.Now()
		res := tx.Model(&models.Lesson{}).
			Where("id = ? AND settled_at IS NULL", lesson.ID).
			Updates(map[string]any{"status": models.LessonDone, "paid_by": paidBy, "settled_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: lesson already settled", ErrConflict)
		}
		lesson.Status = models.LessonDone
		lesson.PaidBy = paidBy
		lesson.SettledAt = &now

		percent := sharePercent()
		entries := []models.Transaction{{
			UserID:   lesson.LogopedID,
			Kind:     models.KindTherapistBalance,
			Amount:   TherapistShare(lesson.PriceMinor, percent),
			LessonID: &lesson.ID,
			Meta:     datatypes.JSONMap{"price": lesson.PriceMinor, "percent": percent, "paid_by": paidBy},
		}}
		if lesson.PaidInCash() {
			entries = append(entries, models.Transaction{
				UserID:   lesson.LogopedID,
				Kind:     models.KindCashHeld,
				Amount:   lesson.PriceMinor,
				LessonID: &lesson.ID,
				Meta:     datatypes.JSONMap{"price": lesson.PriceMinor},
			})
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		return audit(tx, actor, "lesson.settled", "lesson", lesson.ID, map[string]any{"paid_by": paidBy})
	})
	if err != nil {
		return models.Lesson{}, storeErr("settle lesson", err)
	}

	cache.InvalidatePayoutView(ctx, lesson.LogopedID)
	slog.Info("lesson settled", "lesson_id", lesson.ID, "logoped_id", lesson.LogopedID, "paid_by", paidBy)
	return lesson, nil
}
