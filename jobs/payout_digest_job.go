package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/anjiri1684/logoped_crm/notifications"
)

// StalePendingAge is how long a request may wait before operators are reminded of it.
const StalePendingAge = 48 * time.Hour

// SendPendingPayoutDigest emails every active payout operator when requests have been
// waiting longer than StalePendingAge.
func SendPendingPayoutDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sendPendingPayoutDigest(ctx, time.Now())
}

func sendPendingPayoutDigest(ctx context.Context, now time.Time) int {
	db := database.DB.WithContext(ctx)
	cutoff := now.Add(-StalePendingAge).UTC()

	var stale []models.PayoutRequest
	err := db.Where("status = ? AND created_at < ?", models.PayoutPending, cutoff).
		Order("created_at asc").
		Find(&stale).Error
	if err != nil {
		slog.Error("pending payout digest query failed", "error", err)
		return 0
	}
	if len(stale) == 0 {
		return 0
	}
	oldestDays := int(now.Sub(stale[0].CreatedAt).Hours() / 24)

	var operators []models.User
	if err := db.Where("role IN ? AND is_active = ?", access.PayoutOperators, true).Find(&operators).Error; err != nil {
		slog.Error("pending payout digest recipients query failed", "error", err)
		return 0
	}

	for _, op := range operators {
		subject, body := notifications.PendingDigestEmail(op.FullName, int64(len(stale)), oldestDays)
		notifications.SendEmail(op.FullName, op.Email, subject, body)
	}
	slog.Info("pending payout digest sent", "pending", len(stale), "recipients", len(operators))
	return len(operators)
}
