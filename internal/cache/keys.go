package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	TrackingKeyPrefix = "paper:tracking:%s"
	OptionsKey        = "deadline_options"
)

const (
	UserTTL     = 5 * time.Minute
	TrackingTTL = 2 * time.Minute
	OptionsTTL  = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TrackingKey(trackingNumber string) string {
	return fmt.Sprintf(TrackingKeyPrefix, trackingNumber)
}

// GetString fetches a cached value. The empty string means a miss; callers
// fall through to the database.
func GetString(ctx context.Context, key string) string {
	if client == nil {
		return ""
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}

// SetString stores a value best-effort. Failures are absorbed by the metrics
// hook; the database remains the source of truth.
func SetString(ctx context.Context, key, val string, ttl time.Duration) {
	if client != nil {
		client.Set(ctx, key, val, ttl)
	}
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTracking(ctx context.Context, trackingNumber string) {
	Invalidate(ctx, TrackingKey(trackingNumber))
}

func InvalidateOptions(ctx context.Context) {
	Invalidate(ctx, OptionsKey)
}
