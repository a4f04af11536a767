package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Points         int       `json:"points"`
	Experience     int       `json:"experience"`
	TotalStudyTime int       `json:"total_study_time"` // minutes
	CreatedAt      time.Time `json:"created_at"`
}

type Course struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	CreatedAt   time.Time `json:"created_at"`
}

// Difficulty levels run from 1 (easiest) to MaxDifficultyLevel.
const (
	MinDifficultyLevel = 1
	MaxDifficultyLevel = 5
)

type Lesson struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	LessonOrder     int       `json:"lesson_order"`
	DifficultyLevel int       `json:"difficulty_level"`
	EstimatedTime   int       `json:"estimated_time"` // minutes
	PointsReward    int       `json:"points_reward"`
	CreatedAt       time.Time `json:"created_at"`
}

// FormattedEstimatedTime renders the estimate as "Xh Ym".
func (l Lesson) FormattedEstimatedTime() string {
	return FormatMinutes(l.EstimatedTime)
}

// ContentKind is the closed set of content item kinds.
type ContentKind string

const (
	ContentTheory      ContentKind = "theory"
	ContentExercise    ContentKind = "exercise"
	ContentAssessment  ContentKind = "assessment"
	ContentInteractive ContentKind = "interactive"
	ContentResource    ContentKind = "resource"
)

var contentKindAliases = map[string]ContentKind{
	"theory":      ContentTheory,
	"exercise":    ContentExercise,
	"practice":    ContentExercise,
	"assessment":  ContentAssessment,
	"quiz":        ContentAssessment,
	"exam":        ContentAssessment,
	"interactive": ContentInteractive,
	"resource":    ContentResource,
}

// ParseContentKind maps a kind name (or a known alias) to its ContentKind.
func ParseContentKind(s string) (ContentKind, error) {
	if k, ok := contentKindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

func (k ContentKind) Value() (driver.Value, error) {
	if _, err := ParseContentKind(string(k)); err != nil {
		return nil, err
	}
	return string(k), nil
}

func (k *ContentKind) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("unsupported content kind column type %T", src)
	}
	parsed, err := ParseContentKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ContentMetadata carries optional weighting multipliers for a content item.
type ContentMetadata struct {
	Importance *float64 `json:"importance,omitempty"`
	Points     *float64 `json:"points,omitempty"`
}

func (m ContentMetadata) Value() (driver.Value, error) {
	return jsonValue(m)
}

func (m *ContentMetadata) Scan(src any) error {
	var out ContentMetadata
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

type Content struct {
	ID           uuid.UUID       `json:"id"`
	LessonID     uuid.UUID       `json:"lesson_id"`
	Title        string          `json:"title"`
	Kind         ContentKind     `json:"kind"`
	ContentOrder int             `json:"content_order"`
	Metadata     ContentMetadata `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FormatMinutes renders a duration in minutes as "Xh Ym", or "Ym" under an hour.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatSeconds renders a duration in seconds as "M:SS", or "Ss" under a minute.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
