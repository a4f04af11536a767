package gamification

import (
	"sort"
	"time"
)

type streakTier struct {
	Days       int
	Multiplier float64
}

var streakTiers = []streakTier{
	{3, 1.1},
	{7, 1.2},
	{14, 1.3},
	{30, 1.5},
	{60, 1.7},
	{90, 2.0},
}

// StreakMultiplier returns the multiplier of the highest tier reached.
func StreakMultiplier(days int) float64 {
	m := 1.0
	for _, t := range streakTiers {
		if days >= t.Days {
			m = t.Multiplier
		}
	}
	return m
}

type StreakInfo struct {
	Current             int     `json:"current_streak"`
	Longest             int     `json:"longest_streak"`
	Multiplier          float64 `json:"streak_multiplier"`
	NextMilestone       *int    `json:"next_milestone"`
	NextMultiplier      float64 `json:"next_multiplier,omitempty"`
	DaysToNextMilestone int     `json:"days_to_next_milestone"`
}

// NextStreakMilestone returns the first tier above days.
func NextStreakMilestone(days int) (int, float64, bool) {
	for _, t := range streakTiers {
		if days < t.Days {
			return t.Days, t.Multiplier, true
		}
	}
	return 0, 0, false
}

// ActiveDays reduces activity timestamps to distinct UTC dates, ascending.
func ActiveDays(times []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		d := truncateDay(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentStreak counts consecutive active days ending today, or ending
// yesterday when there is no activity yet today.
func CurrentStreak(times []time.Time, now time.Time) int {
	active := make(map[time.Time]bool, len(times))
	for _, d := range ActiveDays(times) {
		active[d] = true
	}

	day := truncateDay(now)
	if !active[day] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for active[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak is the longest run of consecutive active days.
func LongestStreak(times []time.Time) int {
	days := ActiveDays(times)
	longest, run := 0, 0
	for i, d := range days {
		if i > 0 && d.Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// NewStreakInfo summarises activity as seen at now.
func NewStreakInfo(times []time.Time, now time.Time) StreakInfo {
	current := CurrentStreak(times, now)
	info := StreakInfo{
		Current:    current,
		Longest:    LongestStreak(times),
		Multiplier: StreakMultiplier(current),
	}
	if next, mult, ok := NextStreakMilestone(current); ok {
		info.NextMilestone = &next
		info.NextMultiplier = mult
		info.DaysToNextMilestone = next - current
	}
	return info
}
