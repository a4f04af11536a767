package gamification

import (
	"fmt"

	"github.com/vytor/mathtermind/internal/models"
)

// LevelThresholds are the cumulative point totals at which each level starts.
var LevelThresholds = []int{0, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000}

var levelTitles = []string{
	"Beginner",
	"Novice",
	"Apprentice",
	"Student",
	"Scholar",
	"Expert",
	"Master",
	"Grandmaster",
	"Legend",
	"Sage",
	"Genius",
}

// PointMilestones fire once when a learner's total first reaches them.
var PointMilestones = []int{500, 1000, 2500, 5000, 10000, 25000, 50000}

// Level is the number of thresholds the learner has reached, at least 1.
func Level(points int) int {
	level := 0
	for _, t := range LevelThresholds {
		if points >= t {
			level++
		}
	}
	if level < 1 {
		return 1
	}
	return level
}

// MaxLevel is the highest reachable level.
func MaxLevel() int {
	return len(LevelThresholds)
}

// LevelTitle names a level; levels past the list reuse the final title.
func LevelTitle(level int) string {
	switch {
	case level < 1:
		return levelTitles[0]
	case level > len(levelTitles):
		return levelTitles[len(levelTitles)-1]
	default:
		return levelTitles[level-1]
	}
}

type LevelInfo struct {
	Level             int     `json:"level"`
	Points            int     `json:"points"`
	Title             string  `json:"level_title"`
	NextLevelTitle    string  `json:"next_level_title"`
	PointsToNextLevel int     `json:"points_to_next_level"`
	LevelProgress     float64 `json:"level_progress"`
	IsMaxLevel        bool    `json:"is_max_level"`
}

// Info describes where points sit within the level ladder.
func Info(points int) LevelInfo {
	if points < 0 {
		points = 0
	}
	level := Level(points)
	info := LevelInfo{
		Level:          level,
		Points:         points,
		Title:          LevelTitle(level),
		NextLevelTitle: LevelTitle(level + 1),
	}
	if level >= MaxLevel() {
		info.IsMaxLevel = true
		info.LevelProgress = 1.0
		return info
	}

	floor, next := LevelThresholds[level-1], LevelThresholds[level]
	info.PointsToNextLevel = next - points
	info.LevelProgress = float64(points-floor) / float64(next-floor)
	return info
}

// LevelUpRewards emits one reward per level crossed by awarding points on
// top of before.
func LevelUpRewards(before, awarded int) models.SubRewards {
	var out models.SubRewards
	from, to := Level(before), Level(before+awarded)
	for l := from + 1; l <= to; l++ {
		out = append(out, models.SubReward{
			Type:        models.RewardLevelUp,
			Name:        fmt.Sprintf("Level %d Reached!", l),
			Description: fmt.Sprintf("Congratulations on reaching level %d: %s", l, LevelTitle(l)),
			Level:       l,
		})
	}
	return out
}

// MilestoneRewards emits a reward for each milestone m with
// before < m <= before+awarded.
func MilestoneRewards(before, awarded int) models.SubRewards {
	var out models.SubRewards
	after := before + awarded
	for _, m := range PointMilestones {
		if before < m && m <= after {
			out = append(out, models.SubReward{
				Type:        models.RewardMilestone,
				Name:        fmt.Sprintf("%d Points Milestone", m),
				Description: fmt.Sprintf("Earned %d total points!", m),
				Milestone:   m,
			})
		}
	}
	return out
}
