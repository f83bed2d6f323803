// Package cache keeps short-lived rendered views in Redis. A nil client disables caching;
// every caller falls back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	addr := config.Config("REDIS_ADDR")
	if addr == "" {
		slog.Warn("REDIS_ADDR not set, payout view caching disabled")
		return
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		slog.Error("could not connect to redis", "error", err)
		return
	}

	RDB = client
	slog.Info("connected to redis", "addr", addr)
}

func payoutViewKey(userID uuid.UUID) string {
	return fmt.Sprintf("payouts:view:%s", userID)
}

// GetPayoutView decodes the cached payout page of userID into dst. It reports false on a miss
// or when caching is disabled.
func GetPayoutView(ctx context.Context, userID uuid.UUID, dst any) bool {
	if RDB == nil {
		return false
	}
	data, err := RDB.Get(ctx, payoutViewKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("redis GET failed", "error", err, "user_id", userID)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("discarding undecodable payout view", "user_id", userID, "error", err)
		return false
	}
	return true
}

func SetPayoutView(ctx context.Context, userID uuid.UUID, view any) {
	if RDB == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		slog.Error("failed to marshal payout view", "error", err, "user_id", userID)
		return
	}
	ttl := config.Duration("PAYOUT_VIEW_TTL")
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := RDB.Set(ctx, payoutViewKey(userID), data, ttl).Err(); err != nil {
		slog.Error("redis SET failed", "error", err, "user_id", userID)
	}
}

// InvalidatePayoutView drops the cached payout page of userID.
func InvalidatePayoutView(ctx context.Context, userID uuid.UUID) {
	if RDB == nil {
		return
	}
	if err := RDB.Del(ctx, payoutViewKey(userID)).Err(); err != nil {
		slog.Error("redis DEL failed", "error", err, "user_id", userID)
	}
}
