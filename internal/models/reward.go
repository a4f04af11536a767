package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// Trigger names a rewardable learning event.
type Trigger string

const (
	TriggerLessonCompletion Trigger = "LESSON_COMPLETION"
	TriggerCourseCompletion Trigger = "COURSE_COMPLETION"
	TriggerQuizCompletion   Trigger = "QUIZ_COMPLETION"
	TriggerPerfectScore     Trigger = "PERFECT_SCORE"
	TriggerDailyGoalMet     Trigger = "DAILY_GOAL_MET"
)

// RewardType classifies a sub-reward generated alongside a points grant.
type RewardType string

const (
	RewardLevelUp         RewardType = "level_up"
	RewardMilestone       RewardType = "milestone"
	RewardBadge           RewardType = "badge"
	RewardCompletionBonus RewardType = "completion_bonus"
	RewardStreakBonus     RewardType = "streak_bonus"
)

type SubReward struct {
	Type        RewardType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	BonusPoints int        `json:"bonus_points,omitempty"`
	Level       int        `json:"level,omitempty"`
	Milestone   int        `json:"milestone,omitempty"`
}

// SubRewards is stored as a JSON column.
type SubRewards []SubReward

func (r SubRewards) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return jsonValue([]SubReward(r))
}

func (r *SubRewards) Scan(src any) error {
	var out []SubReward
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*r = out
	return nil
}

// BonusPoints sums the bonus points carried by the sub-rewards.
func (r SubRewards) BonusPoints() int {
	total := 0
	for _, s := range r {
		total += s.BonusPoints
	}
	return total
}

// AppliedMultiplier describes one bonus that changed a reward's points.
type AppliedMultiplier struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// Multipliers is stored as a JSON column.
type Multipliers []AppliedMultiplier

func (m Multipliers) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	return jsonValue([]AppliedMultiplier(m))
}

func (m *Multipliers) Scan(src any) error {
	var out []AppliedMultiplier
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Reward is a computed, not yet applied, grant.
type Reward struct {
	Trigger            Trigger     `json:"trigger"`
	Points             int         `json:"points"`
	Experience         int         `json:"experience"`
	Rewards            SubRewards  `json:"rewards"`
	MultipliersApplied Multipliers `json:"multipliers_applied"`
	// EventID is set when the reward comes from an outbox event; a trigger
	// is granted at most once per event.
	EventID            *uuid.UUID  `json:"event_id,omitempty"`
}

// IsZero reports whether the reward grants nothing.
func (r Reward) IsZero() bool {
	return r.Points == 0 && r.Experience == 0 && len(r.Rewards) == 0
}

// RewardGrant is the history row written when a reward is applied.
type RewardGrant struct {
	ID                 uuid.UUID   `json:"id"`
	UserID             uuid.UUID   `json:"user_id"`
	Trigger            Trigger     `json:"trigger"`
	Points             int         `json:"points"`
	Experience         int         `json:"experience"`
	Rewards            SubRewards  `json:"rewards"`
	MultipliersApplied Multipliers `json:"multipliers_applied"`
	EventID            *uuid.UUID  `json:"event_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}
