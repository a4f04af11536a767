package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what a completion event records.
type EventKind string

const (
	EventLessonCompleted  EventKind = "lesson_completed"
	EventCourseCompleted  EventKind = "course_completed"
	EventContentCompleted EventKind = "content_completed"
)

// EventPayload carries the facts a consumer needs without re-reading the write.
type EventPayload struct {
	CourseID         *uuid.UUID  `json:"course_id,omitempty"`
	LessonID         *uuid.UUID  `json:"lesson_id,omitempty"`
	ContentID        *uuid.UUID  `json:"content_id,omitempty"`
	ContentKind      ContentKind `json:"content_kind,omitempty"`
	Score            *float64    `json:"score,omitempty"`
	TimeSpent        int         `json:"time_spent,omitempty"`
	DifficultyLevel  int         `json:"difficulty_level,omitempty"`
	CompletedQuickly bool        `json:"completed_quickly,omitempty"`
}

func (p EventPayload) Value() (driver.Value, error) {
	return jsonValue(p)
}

func (p *EventPayload) Scan(src any) error {
	var out EventPayload
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// ProgressEvent is an outbox row written alongside a completion.
type ProgressEvent struct {
	ID                 uuid.UUID    `json:"id"`
	UserID             uuid.UUID    `json:"user_id"`
	Kind               EventKind    `json:"kind"`
	Payload            EventPayload `json:"payload"`
	CreatedAt          time.Time    `json:"created_at"`
	Attempts           int          `json:"attempts"`
	CompletedConsumers StringList   `json:"completed_consumers"`
	LastErrors         StringMap    `json:"last_errors"`
	ProcessedAt        *time.Time   `json:"processed_at"`
}

// NewProgressEvent builds an unsaved event for userID.
func NewProgressEvent(userID uuid.UUID, kind EventKind, payload EventPayload) ProgressEvent {
	return ProgressEvent{
		ID:                 uuid.New(),
		UserID:             userID,
		Kind:               kind,
		Payload:            payload,
		CreatedAt:          time.Now().UTC(),
		CompletedConsumers: StringList{},
		LastErrors:         StringMap{},
	}
}
