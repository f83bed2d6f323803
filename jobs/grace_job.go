package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/anjiri1684/logoped_crm/services"
)

// SweepOrgGrace detaches members whose grace period ran out without them opening the
// dashboard.
func SweepOrgGrace() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cleared, err := services.SweepExpiredGrace(ctx)
	if err != nil {
		slog.Error("grace sweep failed", "error", err)
		return
	}
	if cleared > 0 {
		slog.Info("grace sweep finished", "cleared", cleared)
	}
}
