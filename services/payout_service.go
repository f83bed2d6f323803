package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/cache"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/anjiri1684/logoped_crm/notifications"
	"github.com/anjiri1684/logoped_crm/utils"
	"github.com/anjiri1684/logoped_crm/websocket"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeAlreadyPending Outcome = "already_pending"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeApproved       Outcome = "approved"
	OutcomeRejected       Outcome = "rejected"
	OutcomeUnchanged      Outcome = "unchanged"
)

type PayoutResult struct {
	Outcome   Outcome
	Request   *models.PayoutRequest
	Cancelled int64
}

var errPendingExists = errors.New("pending payout request exists")

func audit(tx *gorm.DB, actor access.Identity, action, entityType string, entityID uuid.UUID, meta map[string]any) error {
	entry := models.AuditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Meta:       datatypes.JSONMap(meta),
	}
	if !actor.Anonymous() {
		actorID := actor.UserID
		entry.ActorID = &actorID
	}
	return tx.Create(&entry).Error
}

func findPending(tx *gorm.DB, logopedID uuid.UUID) (*models.PayoutRequest, error) {
	var req models.PayoutRequest
	err := tx.Where("logoped_id = ? AND status = ?", logopedID, models.PayoutPending).
		Order("created_at desc").
		First(&req).Error
	if isRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreatePayoutRequest files a claim on the therapist's whole outstanding balance. When a
// PENDING request already exists nothing is written and the existing request is returned
// with OutcomeAlreadyPending. The partial unique index on pending requests backs the check
// against concurrent callers.
func CreatePayoutRequest(ctx context.Context, actor access.Identity, logopedID uuid.UUID) (PayoutResult, error) {
	if err := authorize(actor, access.TherapistOr(logopedID, access.PayoutOperators...)); err != nil {
		return PayoutResult{}, err
	}

	var result PayoutResult
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		therapist, err := loadTherapist(tx, logopedID)
		if err != nil {
			return err
		}
		if therapist == nil {
			return notFound("therapist")
		}

		existing, err := findPending(tx, logopedID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = PayoutResult{Outcome: OutcomeAlreadyPending, Request: existing}
			return nil
		}

		balance, err := LedgerBalance(tx, logopedID)
		if err != nil {
			return err
		}

		ref, err := utils.GenerateUniquePayoutReference(tx)
		if err != nil {
			return err
		}

		req := models.PayoutRequest{
			Reference:         ref,
			LogopedID:         logopedID,
			BalanceAtRequest:  balance.TShare,
			CashHeldAtRequest: balance.CashHeld,
			PayoutsAtRequest:  balance.Payouts,
			FinalAmount:       balance.Net(),
			Status:            models.PayoutPending,
			CreatedByID:       actor.UserID,
		}
		if err := tx.Create(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errPendingExists
			}
			return err
		}

		if err := audit(tx, actor, "payout.requested", "payout_request", req.ID, map[string]any{
			"reference":    req.Reference,
			"final_amount": req.FinalAmount,
		}); err != nil {
			return err
		}

		result = PayoutResult{Outcome: OutcomeCreated, Request: &req}
		return nil
	})

	if errors.Is(err, errPendingExists) {
		// Lost the race to a concurrent request; report the winner.
		existing, ferr := findPending(database.DB.WithContext(ctx), logopedID)
		if ferr != nil {
			return PayoutResult{}, storeErr("find pending payout request", ferr)
		}
		if existing == nil {
			return PayoutResult{}, fmt.Errorf("%w: payout request could not be created", ErrConflict)
		}
		return PayoutResult{Outcome: OutcomeAlreadyPending, Request: existing}, nil
	}
	if err != nil {
		return PayoutResult{}, storeErr("create payout request", err)
	}

	if result.Outcome == OutcomeCreated {
		cache.InvalidatePayoutView(ctx, logopedID)
		slog.Info("payout request created",
			"logoped_id", logopedID, "reference", result.Request.Reference, "final_amount", result.Request.FinalAmount)
	}
	return result, nil
}

// CancelPayoutRequest cancels one PENDING request when requestID is given, or every PENDING
// request of logopedID otherwise. Requests that are not pending, or that the actor may not
// touch, are left as they are.
func CancelPayoutRequest(ctx context.Context, actor access.Identity, logopedID uuid.UUID, requestID *uuid.UUID) (PayoutResult, error) {
	if requestID == nil {
		return cancelAllPending(ctx, actor, logopedID)
	}
	if actor.Anonymous() {
		return PayoutResult{}, ErrUnauthorized
	}

	result := PayoutResult{Outcome: OutcomeUnchanged}
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.PayoutRequest
		if err := tx.First(&req, "id = ?", *requestID).Error; err != nil {
			if isRecordNotFound(err) {
				result.Outcome = OutcomeNotFound
				return nil
			}
			return err
		}
		result.Request = &req

		if access.Decide(actor, access.TherapistOr(req.LogopedID, access.PayoutOperators...)) != access.Allow {
			return nil
		}
		if req.Status != models.PayoutPending {
			return nil
		}

		n, err := transition(tx, actor, req.ID, models.PayoutCancelled, nil)
		if err != nil || n == 0 {
			return err
		}
		if err := audit(tx, actor, "payout.cancelled", "payout_request", req.ID, map[string]any{"reference": req.Reference}); err != nil {
			return err
		}
		req.Status = models.PayoutCancelled
		result.Outcome = OutcomeCancelled
		result.Cancelled = 1
		return nil
	})
	if err != nil {
		return PayoutResult{}, storeErr("cancel payout request", err)
	}

	if result.Outcome == OutcomeCancelled {
		cache.InvalidatePayoutView(ctx, result.Request.LogopedID)
		slog.Info("payout request cancelled", "request_id", result.Request.ID, "actor_id", actor.UserID)
	}
	return result, nil
}

func cancelAllPending(ctx context.Context, actor access.Identity, logopedID uuid.UUID) (PayoutResult, error) {
	if err := authorize(actor, access.TherapistOr(logopedID, access.PayoutOperators...)); err != nil {
		return PayoutResult{}, err
	}

	result := PayoutResult{Outcome: OutcomeUnchanged}
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.PayoutRequest
		if err := tx.Where("logoped_id = ? AND status = ?", logopedID, models.PayoutPending).Find(&pending).Error; err != nil {
			return err
		}
		for _, req := range pending {
			n, err := transition(tx, actor, req.ID, models.PayoutCancelled, nil)
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			if err := audit(tx, actor, "payout.cancelled", "payout_request", req.ID, map[string]any{"reference": req.Reference, "bulk": true}); err != nil {
				return err
			}
			result.Cancelled++
		}
		return nil
	})
	if err != nil {
		return PayoutResult{}, storeErr("cancel payout requests", err)
	}

	if result.Cancelled > 0 {
		result.Outcome = OutcomeCancelled
		cache.InvalidatePayoutView(ctx, logopedID)
		slog.Info("pending payout requests cancelled", "logoped_id", logopedID, "count", result.Cancelled)
	}
	return result, nil
}

// transition moves a PENDING request to status. The status guard in the WHERE clause makes
// the move conditional, so a request that already left PENDING is never rewritten.
func transition(tx *gorm.DB, actor access.Identity, requestID uuid.UUID, status string, note *string) (int64, error) {
	now := database.Now()
	updates := map[string]any{
		"status":        status,
		"decided_by_id": actor.UserID,
		"decided_at":    now,
	}
	if note != nil {
		updates["note"] = *note
	}
	res := tx.Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", requestID, models.PayoutPending).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ApprovePayoutRequest confirms a pending request and books the PAYOUT ledger entry for its
// snapshotted final amount in the same transaction.
func ApprovePayoutRequest(ctx context.Context, actor access.Identity, requestID uuid.UUID, note string) (PayoutResult, error) {
	return decide(ctx, actor, requestID, models.PayoutApproved, note)
}

func RejectPayoutRequest(ctx context.Context, actor access.Identity, requestID uuid.UUID, note string) (PayoutResult, error) {
	return decide(ctx, actor, requestID, models.PayoutRejected, note)
}

func decide(ctx context.Context, actor access.Identity, requestID uuid.UUID, status, note string) (PayoutResult, error) {
	if err := authorize(actor, access.Roles(access.PayoutOperators...)); err != nil {
		return PayoutResult{}, err
	}

	var req models.PayoutRequest
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Logoped").First(&req, "id = ?", requestID).Error; err != nil {
			if isRecordNotFound(err) {
				return notFound("payout request")
			}
			return err
		}
		if req.IsTerminal() {
			return fmt.Errorf("%w: payout request is already %s", ErrConflict, req.Status)
		}

		var notePtr *string
		if note != "" {
			notePtr = &note
		}
		n, err := transition(tx, actor, req.ID, status, notePtr)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: payout request was decided concurrently", ErrConflict)
		}

		if status == models.PayoutApproved && req.FinalAmount > 0 {
			payout := models.Transaction{
				UserID:          req.LogopedID,
				Kind:            models.KindPayout,
				Amount:          req.FinalAmount,
				PayoutRequestID: &req.ID,
				Meta:            datatypes.JSONMap{"reference": req.Reference},
			}
			if err := tx.Create(&payout).Error; err != nil {
				return err
			}
		}

		action := "payout.rejected"
		if status == models.PayoutApproved {
			action = "payout.approved"
		}
		if err := audit(tx, actor, action, "payout_request", req.ID, map[string]any{
			"reference":    req.Reference,
			"final_amount": req.FinalAmount,
			"note":         note,
		}); err != nil {
			return err
		}

		now := database.Now()
		req.Status = status
		req.DecidedByID = &actor.UserID
		req.DecidedAt = &now
		req.Note = notePtr
		return nil
	})
	if err != nil {
		return PayoutResult{}, storeErr("decide payout request", err)
	}

	cache.InvalidatePayoutView(ctx, req.LogopedID)
	websocket.Notify(req.LogopedID, websocket.Event{
		Type: "payout.status",
		Payload: map[string]any{
			"request_id":   req.ID,
			"reference":    req.Reference,
			"status":       req.Status,
			"final_amount": req.FinalAmount,
		},
	})

	therapist := req.Logoped
	outcome := OutcomeRejected
	if status == models.PayoutApproved {
		outcome = OutcomeApproved
		subject, body := notifications.PayoutApprovedEmail(therapist.FullName, req.Reference, req.FinalAmount)
		go notifications.SendEmail(therapist.FullName, therapist.Email, subject, body)
	} else {
		subject, body := notifications.PayoutRejectedEmail(therapist.FullName, req.Reference, note)
		go notifications.SendEmail(therapist.FullName, therapist.Email, subject, body)
	}

	slog.Info("payout request decided", "request_id", req.ID, "status", req.Status, "actor_id", actor.UserID)
	return PayoutResult{Outcome: outcome, Request: &req}, nil
}
