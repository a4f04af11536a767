package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"

	"github.com/vytor/mathtermind/internal/criteria"
)

// Achievement categories used by the targeted checks.
const (
	CategoryLearning = "learning"
	CategoryProgress = "progress"
	CategoryUser     = "user"
	CategoryStreak   = "streak"
	CategoryMastery  = "mastery"
	CategorySocial   = "social"
)

type Achievement struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Criteria    criteria.Spec `json:"criteria"`
	Category    string        `json:"category"`
	Icon        string        `json:"icon"`
	Points      int           `json:"points"`
	IsHidden    bool          `json:"is_hidden"`
	Tier        *string       `json:"tier"`
	CreatedAt   time.Time     `json:"created_at"`
}

type AchievementFilter struct {
	Category      string
	IncludeHidden bool
	Limit         int
}

// AwardSnapshot captures the learner's standing when an achievement was granted.
type AwardSnapshot struct {
	CriteriaKind string  `json:"criteria_kind"`
	Current      float64 `json:"current"`
	Required     float64 `json:"required"`
	UserPoints   int     `json:"user_points"`
	Source       string  `json:"source,omitempty"`
}

func (s AwardSnapshot) Value() (driver.Value, error) {
	return jsonValue(s)
}

func (s *AwardSnapshot) Scan(src any) error {
	var out AwardSnapshot
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

type UserAchievement struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	AchievementID uuid.UUID     `json:"achievement_id"`
	AchievedAt    time.Time     `json:"achieved_at"`
	ProgressData  AwardSnapshot `json:"progress_data"`
}

// UserAchievementDetail joins a grant with its catalog entry.
type UserAchievementDetail struct {
	UserAchievement
	Name     string `json:"name"`
	Category string `json:"category"`
	Icon     string `json:"icon"`
	Points   int    `json:"points"`
}
