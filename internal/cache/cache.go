// Package cache provides the read-through caches for user stats and the
// leaderboard: an in-process bounded TTL cache and a Redis backend.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

var ErrKeyEmpty = errors.New("cache: key cannot be empty")

// Key prefixes shared by the services that read and invalidate them.
const (
	PrefixUserStats   = "user_stats:"
	PrefixLeaderboard = "leaderboard:"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether
	// the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

func UserStatsKey(userID uuid.UUID) string {
	return PrefixUserStats + userID.String()
}

func LeaderboardKey(limit int) string {
	return fmt.Sprintf("%stop:%d", PrefixLeaderboard, limit)
}
