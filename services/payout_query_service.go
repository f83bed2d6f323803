package services

import (
	"context"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/cache"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutStatus struct {
	Pending         int64      `json:"pending"`
	LastConfirmedAt *time.Time `json:"lastConfirmedAt"`
}

// MyStatus reports the caller's own pending count and the time of their last approved payout.
func MyStatus(ctx context.Context, actor access.Identity) (PayoutStatus, error) {
	if actor.Anonymous() {
		return PayoutStatus{}, ErrUnauthorized
	}

	var status PayoutStatus
	err := withSnapshot(ctx, database.DB, func(tx *gorm.DB) error {
		if err := tx.Model(&models.PayoutRequest{}).
			Where("logoped_id = ? AND status = ?", actor.UserID, models.PayoutPending).
			Count(&status.Pending).Error; err != nil {
			return err
		}

		var last models.PayoutRequest
		err := tx.Where("logoped_id = ? AND status = ?", actor.UserID, models.PayoutApproved).
			Order("decided_at desc").
			First(&last).Error
		if isRecordNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		status.LastConfirmedAt = last.DecidedAt
		return nil
	})
	if err != nil {
		return PayoutStatus{}, storeErr("payout status", err)
	}
	return status, nil
}

// visibleRequests narrows a payout request query to what the caller's role may see.
func visibleRequests(tx *gorm.DB, actor access.Identity) *gorm.DB {
	q := tx.Model(&models.PayoutRequest{})
	switch actor.Role {
	case models.RoleSuperAdmin:
		return q
	case models.RoleLogoped:
		return q.Where("logoped_id = ?", actor.UserID)
	case models.RoleBranchManager:
		managed := tx.Model(&models.Branch{}).Select("id").Where("manager_id = ?", actor.UserID)
		members := tx.Model(&models.User{}).Select("id").Where("branch_id IN (?)", managed)
		return q.Where("logoped_id IN (?)", members)
	case models.RoleAdmin, models.RoleAccountant:
		ownBranch := tx.Model(&models.User{}).Select("branch_id").Where("id = ?", actor.UserID)
		companies := tx.Model(&models.Company{}).Select("id").
			Where("owner_id = ? OR id IN (?)", actor.UserID,
				tx.Model(&models.Branch{}).Select("company_id").Where("id IN (?)", ownBranch))
		branches := tx.Model(&models.Branch{}).Select("id").Where("company_id IN (?)", companies)
		members := tx.Model(&models.User{}).Select("id").Where("branch_id IN (?)", branches)
		return q.Where("logoped_id IN (?)", members)
	default:
		return q.Where("1 = 0")
	}
}

func PendingCount(ctx context.Context, actor access.Identity) (int64, error) {
	if actor.Anonymous() {
		return 0, ErrUnauthorized
	}
	var n int64
	err := visibleRequests(database.DB.WithContext(ctx), actor).
		Where("status = ?", models.PayoutPending).
		Count(&n).Error
	if err != nil {
		return 0, storeErr("count pending payout requests", err)
	}
	return n, nil
}

// ListPayoutRequests returns the requests visible to the caller, newest first. An empty
// status lists every status.
func ListPayoutRequests(ctx context.Context, actor access.Identity, status string, limit int) ([]models.PayoutRequest, error) {
	if actor.Anonymous() {
		return nil, ErrUnauthorized
	}
	switch status {
	case "", models.PayoutPending, models.PayoutApproved, models.PayoutRejected, models.PayoutCancelled:
	default:
		return nil, invalid("unknown payout status %q", status)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := visibleRequests(database.DB.WithContext(ctx), actor)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	requests := []models.PayoutRequest{}
	if err := q.Order("created_at desc").Limit(limit).Find(&requests).Error; err != nil {
		return nil, storeErr("list payout requests", err)
	}
	return requests, nil
}

type PayoutBalance struct {
	TShare   int64 `json:"tshare"`
	CashHeld int64 `json:"cashTher"`
	Payouts  int64 `json:"payouts"`
	Net      int64 `json:"net"`
}

// PayoutPage is the therapist's payout dashboard. It is cached per user and dropped whenever
// one of the user's requests changes.
type PayoutPage struct {
	Balance  PayoutBalance          `json:"balance"`
	Pending  *models.PayoutRequest  `json:"pending"`
	Requests []models.PayoutRequest `json:"requests"`
}

const payoutPageHistory = 20

func LoadPayoutPage(ctx context.Context, actor access.Identity) (PayoutPage, error) {
	if err := authorize(actor, access.Roles(models.RoleLogoped)); err != nil {
		return PayoutPage{}, err
	}

	var page PayoutPage
	if cache.GetPayoutView(ctx, actor.UserID, &page) {
		return page, nil
	}

	page, err := buildPayoutPage(ctx, actor.UserID)
	if err != nil {
		return PayoutPage{}, err
	}
	cache.SetPayoutView(ctx, actor.UserID, page)
	return page, nil
}

func buildPayoutPage(ctx context.Context, userID uuid.UUID) (PayoutPage, error) {
	page := PayoutPage{Requests: []models.PayoutRequest{}}
	err := withSnapshot(ctx, database.DB, func(tx *gorm.DB) error {
		balance, err := LedgerBalance(tx, userID)
		if err != nil {
			return err
		}
		page.Balance = PayoutBalance{
			TShare:   balance.TShare,
			CashHeld: balance.CashHeld,
			Payouts:  balance.Payouts,
			Net:      balance.Net(),
		}

		if err := tx.Where("logoped_id = ?", userID).
			Order("created_at desc").
			Limit(payoutPageHistory).
			Find(&page.Requests).Error; err != nil {
			return err
		}
		for i := range page.Requests {
			if page.Requests[i].Status == models.PayoutPending {
				page.Pending = &page.Requests[i]
				break
			}
		}
		return nil
	})
	if err != nil {
		return PayoutPage{}, storeErr("build payout page", err)
	}
	return page, nil
}
