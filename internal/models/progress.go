package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentStatus is the learner's state on a single content item.
type ContentStatus string

const (
	StatusNotStarted ContentStatus = "not_started"
	StatusInProgress ContentStatus = "in_progress"
	StatusCompleted  ContentStatus = "completed"
)

func ParseContentStatus(s string) (ContentStatus, error) {
	switch st := ContentStatus(s); st {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown content status %q", s)
}

type Progress struct {
	ID                 uuid.UUID    `json:"id"`
	UserID             uuid.UUID    `json:"user_id"`
	CourseID           uuid.UUID    `json:"course_id"`
	CurrentLessonID    *uuid.UUID   `json:"current_lesson_id"`
	TotalPointsEarned  int          `json:"total_points_earned"`
	TimeSpent          int          `json:"time_spent"` // minutes
	ProgressPercentage float64      `json:"progress_percentage"`
	ProgressData       ProgressData `json:"progress_data"`
	LastAccessed       time.Time    `json:"last_accessed"`
	IsCompleted        bool         `json:"is_completed"`
	CreatedAt          time.Time    `json:"created_at"`
}

func (p Progress) FormattedTimeSpent() string {
	return FormatMinutes(p.TimeSpent)
}

// MarkCompleted keeps is_completed and the percentage consistent.
func (p *Progress) MarkCompleted() {
	p.IsCompleted = true
	p.ProgressPercentage = 100.0
}

// Position is the learner's last location inside a course.
type Position struct {
	LessonID  uuid.UUID  `json:"lesson_id"`
	ContentID *uuid.UUID `json:"content_id,omitempty"`
}

// ProgressData is the auxiliary state kept on a Progress record.
type ProgressData struct {
	CompletedContentIDs UUIDList          `json:"completed_content_ids,omitempty"`
	LastPosition        *Position         `json:"last_position,omitempty"`
	Weighted            *WeightedSnapshot `json:"weighted,omitempty"`
	Sync                *SyncSnapshot     `json:"sync,omitempty"`
}

func (d ProgressData) Value() (driver.Value, error) {
	return jsonValue(d)
}

func (d *ProgressData) Scan(src any) error {
	var out ProgressData
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*d = out
	return nil
}

// AddCompletedContent records id once.
func (d *ProgressData) AddCompletedContent(id uuid.UUID) {
	if !d.CompletedContentIDs.Contains(id) {
		d.CompletedContentIDs = append(d.CompletedContentIDs, id)
	}
}

// RemoveCompletedContent drops id when content leaves the completed state.
func (d *ProgressData) RemoveCompletedContent(id uuid.UUID) {
	kept := d.CompletedContentIDs[:0]
	for _, existing := range d.CompletedContentIDs {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	d.CompletedContentIDs = kept
}

// WeightedSnapshot records the inputs of the last weighted calculation.
type WeightedSnapshot struct {
	CompletionRatio float64               `json:"completion_ratio"`
	CompletedCount  int                   `json:"completed_count"`
	PartialCount    int                   `json:"partial_count"`
	TotalCount      int                   `json:"total_count"`
	ContentWeights  map[uuid.UUID]float64 `json:"content_weights"`
	LessonWeights   map[uuid.UUID]float64 `json:"lesson_weights"`
	CalculatedAt    time.Time             `json:"calculated_at"`
}

// SyncSnapshot records the aggregates written by the last reconciliation.
type SyncSnapshot struct {
	CompletedLessons  int       `json:"completed_lessons"`
	TotalLessons      int       `json:"total_lessons"`
	CompletedContents int       `json:"completed_contents"`
	TotalContents     int       `json:"total_contents"`
	SimplePercentage  float64   `json:"simple_percentage"`
	AverageScore      *float64  `json:"average_score,omitempty"`
	TotalTimeSeconds  int       `json:"total_time_seconds"`
	SyncedAt          time.Time `json:"synced_at"`
}

type CompletedLesson struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	LessonID    uuid.UUID `json:"lesson_id"`
	CourseID    uuid.UUID `json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       *float64  `json:"score"`
	TimeSpent   int       `json:"time_spent"` // minutes
}

func (c CompletedLesson) FormattedTimeSpent() string {
	return FormatMinutes(c.TimeSpent)
}

type CompletedCourse struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                uuid.UUID  `json:"user_id"`
	CourseID              uuid.UUID  `json:"course_id"`
	CompletedAt           time.Time  `json:"completed_at"`
	FinalScore            *float64   `json:"final_score"`
	TotalTimeSpent        int        `json:"total_time_spent"` // minutes
	CompletedLessonsCount int        `json:"completed_lessons_count"`
	AchievementsEarned    UUIDList   `json:"achievements_earned"`
	CertificateID         *uuid.UUID `json:"certificate_id"`
}

func (c CompletedCourse) FormattedTimeSpent() string {
	return FormatMinutes(c.TotalTimeSpent)
}

type UserContentProgress struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	ContentID       uuid.UUID     `json:"content_id"`
	LessonID        uuid.UUID     `json:"lesson_id"`
	ProgressID      uuid.UUID     `json:"progress_id"`
	Status          ContentStatus `json:"status"`
	Score           *float64      `json:"score"`
	TimeSpent       int           `json:"time_spent"` // seconds
	LastInteraction time.Time     `json:"last_interaction"`
	CustomData      JSONMap       `json:"custom_data"`
}

func (p UserContentProgress) FormattedTimeSpent() string {
	return FormatSeconds(p.TimeSpent)
}

func (p UserContentProgress) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// ContentProgressFilter narrows content progress counts.
type ContentProgressFilter struct {
	UserID     uuid.UUID
	LessonID   *uuid.UUID
	Status     ContentStatus
	MinScore   *float64
	ProgressID *uuid.UUID
}
