// Package gamification holds the pure reward rules: base points, multiplier
// composition, experience, levels, point milestones and streaks.
package gamification

import (
	"fmt"
	"strings"

	"github.com/vytor/mathtermind/internal/models"
)

// Difficulty is the reward difficulty tier of the event being rewarded.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

var difficultyMultipliers = map[Difficulty]float64{
	DifficultyEasy:   0.8,
	DifficultyMedium: 1.0,
	DifficultyHard:   1.3,
	DifficultyExpert: 1.6,
}

// ParseDifficulty accepts the tier names case-insensitively; empty means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	if strings.TrimSpace(s) == "" {
		return DifficultyMedium, nil
	}
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := difficultyMultipliers[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// DifficultyForLevel maps a lesson's 1..5 difficulty level onto a reward tier.
func DifficultyForLevel(level int) Difficulty {
	switch level {
	case 1:
		return DifficultyEasy
	case 4:
		return DifficultyHard
	case 5:
		return DifficultyExpert
	default:
		return DifficultyMedium
	}
}

var basePoints = map[models.Trigger]int{
	models.TriggerLessonCompletion: 10,
	models.TriggerCourseCompletion: 100,
	models.TriggerQuizCompletion:   15,
	models.TriggerPerfectScore:     25,
	models.TriggerDailyGoalMet:     20,
}

// BasePoints returns the fixed points for trigger.
func BasePoints(trigger models.Trigger) (int, bool) {
	p, ok := basePoints[trigger]
	return p, ok
}

// ParseTrigger validates a trigger name.
func ParseTrigger(s string) (models.Trigger, error) {
	t := models.Trigger(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := basePoints[t]; !ok {
		return "", fmt.Errorf("unknown reward trigger %q", s)
	}
	return t, nil
}

// RewardContext describes the circumstances of a rewarded event.
type RewardContext struct {
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	CompletedQuickly bool       `json:"completed_quickly,omitempty"`
}

const (
	quickCompletionMultiplier = 1.15
	perfectScoreMultiplier    = 1.5
	truncationSlack           = 1e-9
)

func performanceMultiplier(score *float64) float64 {
	switch {
	case score == nil:
		return 1.0
	case *score >= 90:
		return 1.2
	case *score >= 80:
		return 1.1
	default:
		return 1.0
	}
}

// ApplyMultipliers composes difficulty, performance, streak, quick completion
// and the perfect-score bonus, in that order, and truncates the result.
func ApplyMultipliers(base int, trigger models.Trigger, rc RewardContext, streakDays int) (int, models.Multipliers) {
	total := float64(base)
	applied := models.Multipliers{}

	difficulty := rc.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	dm, ok := difficultyMultipliers[difficulty]
	if !ok {
		dm = 1.0
	}
	total *= dm
	if dm != 1.0 {
		applied = append(applied, models.AppliedMultiplier{
			Type:        "difficulty",
			Value:       dm,
			Description: fmt.Sprintf("%s difficulty", capitalize(string(difficulty))),
		})
	}

	pm := performanceMultiplier(rc.Score)
	total *= pm
	if pm > 1.0 {
		applied = append(applied, models.AppliedMultiplier{
			Type:        "performance",
			Value:       pm,
			Description: fmt.Sprintf("High performance (%.0f%%)", *rc.Score),
		})
	}

	sm := StreakMultiplier(streakDays)
	total *= sm
	if sm > 1.0 {
		applied = append(applied, models.AppliedMultiplier{
			Type:        "streak",
			Value:       sm,
			Description: fmt.Sprintf("%d-day streak bonus", streakDays),
		})
	}

	if rc.CompletedQuickly {
		total *= quickCompletionMultiplier
		applied = append(applied, models.AppliedMultiplier{
			Type:        "quick_completion",
			Value:       quickCompletionMultiplier,
			Description: "Completed quickly",
		})
	}

	if trigger == models.TriggerPerfectScore {
		total *= perfectScoreMultiplier
		applied = append(applied, models.AppliedMultiplier{
			Type:        "perfect_score",
			Value:       perfectScoreMultiplier,
			Description: "Perfect score bonus",
		})
	}

	// 100 * 1.15 is 114.99999999999999 in float64 and must still give 115
	return int(total + truncationSlack), applied
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Experience is half the awarded points, boosted for course completions and
// perfect scores.
func Experience(trigger models.Trigger, points int) int {
	xp := points / 2
	if trigger == models.TriggerCourseCompletion || trigger == models.TriggerPerfectScore {
		xp = int(float64(xp) * 1.5)
	}
	return xp
}

// TriggerRewards returns the sub-rewards attached to the trigger itself and
// to the learner's current streak.
func TriggerRewards(trigger models.Trigger, streakDays int) models.SubRewards {
	var out models.SubRewards
	switch trigger {
	case models.TriggerPerfectScore:
		out = append(out, models.SubReward{
			Type:        models.RewardBadge,
			Name:        "Perfect Score",
			Description: "Achieved a perfect score!",
		})
	case models.TriggerCourseCompletion:
		out = append(out, models.SubReward{
			Type:        models.RewardCompletionBonus,
			Name:        "Course Master",
			Description: "Completed an entire course!",
			BonusPoints: 50,
		})
	}
	if streakDays > 0 && streakDays%7 == 0 {
		out = append(out, models.SubReward{
			Type:        models.RewardStreakBonus,
			Name:        fmt.Sprintf("%d-Day Streak", streakDays),
			Description: fmt.Sprintf("Maintained a %d-day learning streak!", streakDays),
			BonusPoints: streakDays * 5,
		})
	}
	return out
}

// Calculate builds the full reward for trigger given the learner's streak and
// point total before the award.
func Calculate(trigger models.Trigger, rc RewardContext, streakDays, currentPoints int) (models.Reward, error) {
	base, ok := BasePoints(trigger)
	if !ok {
		return models.Reward{}, fmt.Errorf("unknown reward trigger %q", trigger)
	}
	if rc.Score != nil && (*rc.Score < 0 || *rc.Score > 100) {
		return models.Reward{}, fmt.Errorf("score %v out of range 0..100", *rc.Score)
	}

	points, applied := ApplyMultipliers(base, trigger, rc, streakDays)
	rewards := TriggerRewards(trigger, streakDays)
	rewards = append(rewards, LevelUpRewards(currentPoints, points)...)
	rewards = append(rewards, MilestoneRewards(currentPoints, points)...)

	return models.Reward{
		Trigger:            trigger,
		Points:             points,
		Experience:         Experience(trigger, points),
		Rewards:            rewards,
		MultipliersApplied: applied,
	}, nil
}
