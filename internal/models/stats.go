package models

import (
	"time"

	"github.com/google/uuid"
)

type UserStats struct {
	UserID            uuid.UUID `json:"user_id"`
	TotalPoints       int       `json:"total_points"`
	Experience        int       `json:"experience"`
	Level             int       `json:"level"`
	LevelTitle        string    `json:"level_title"`
	CoursesInProgress int       `json:"courses_in_progress"`
	CoursesCompleted  int       `json:"courses_completed"`
	LessonsCompleted  int       `json:"lessons_completed"`
	ContentCompleted  int       `json:"content_completed"`
	TotalStudyMinutes int       `json:"total_study_minutes"`
	AverageScore      *float64  `json:"average_score"`
	CurrentStreak     int       `json:"current_streak"`
	LongestStreak     int       `json:"longest_streak"`
}

type DailyActivity struct {
	Date                time.Time `json:"date"`
	LessonsCompleted    int       `json:"lessons_completed"`
	ContentInteractions int       `json:"content_interactions"`
}

type CourseProgressSummary struct {
	CourseID           uuid.UUID `json:"course_id"`
	CourseName         string    `json:"course_name"`
	ProgressPercentage float64   `json:"progress_percentage"`
	IsCompleted        bool      `json:"is_completed"`
	TimeSpent          string    `json:"time_spent"`
	LastAccessed       time.Time `json:"last_accessed"`
}

type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Points     int       `json:"points"`
	Level      int       `json:"level"`
	LevelTitle string    `json:"level_title"`
}

// ScoreSummary aggregates content scores for a user.
type ScoreSummary struct {
	Count   int
	Average *float64
}
