// Package weighting computes weighted course completion from lessons, their
// content and a learner's per-content progress.
package weighting

import (
	"time"

	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/models"
)

type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoLessons Status = "no_lessons"
	StatusNoContent Status = "no_content"
	StatusError     Status = "error"
)

// Details accompanies a weighted percentage. Snapshot is set only on success.
type Details struct {
	Status   Status                   `json:"status"`
	Message  string                   `json:"message,omitempty"`
	Snapshot *models.WeightedSnapshot `json:"snapshot,omitempty"`
}

var kindMultipliers = map[models.ContentKind]float64{
	models.ContentAssessment: 2.0,
	models.ContentExercise:   1.5,
}

// KindMultiplier weighs assessments and exercises above passive content.
func KindMultiplier(kind models.ContentKind) float64 {
	if m, ok := kindMultipliers[kind]; ok {
		return m
	}
	return 1.0
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// LessonWeight lands in [0.5, 1.0]; later and harder lessons weigh more.
func LessonWeight(lesson models.Lesson, totalLessons int) float64 {
	if totalLessons <= 0 {
		totalLessons = 1
	}
	order := clamp01(float64(lesson.LessonOrder) / float64(totalLessons))
	difficulty := clamp01(float64(lesson.DifficultyLevel) / float64(models.MaxDifficultyLevel))
	return 0.5 + ((order+difficulty)/2)*0.5
}

func metadataMultiplier(v *float64) float64 {
	switch {
	case v == nil:
		return 1.0
	case *v < 0:
		return 0
	default:
		return *v
	}
}

// ContentWeight is the unnormalized weight of one content item.
func ContentWeight(content models.Content, lessonWeight float64) float64 {
	return KindMultiplier(content.Kind) *
		metadataMultiplier(content.Metadata.Importance) *
		metadataMultiplier(content.Metadata.Points) *
		lessonWeight
}

// Normalize scales weights to sum to 1. ok is false when the sum is zero.
func Normalize(weights map[uuid.UUID]float64) (map[uuid.UUID]float64, bool) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, false
	}
	out := make(map[uuid.UUID]float64, len(weights))
	for id, w := range weights {
		out[id] = w / sum
	}
	return out, true
}

// Fraction is how much credit a content item earns: full when completed,
// otherwise the score share if a score exists.
func Fraction(p *models.UserContentProgress) float64 {
	switch {
	case p == nil:
		return 0
	case p.Status == models.StatusCompleted:
		return 1
	case p.Score != nil:
		return clamp01(*p.Score / 100)
	default:
		return 0
	}
}

// Compute runs the weighted completion algorithm. Lessons must already be in
// lesson order; progress is keyed by content id.
func Compute(lessons []models.Lesson, contents []models.Content, progress map[uuid.UUID]*models.UserContentProgress, now time.Time) (float64, Details) {
	if len(lessons) == 0 {
		return 0, Details{Status: StatusNoLessons, Message: "course has no lessons"}
	}
	if len(contents) == 0 {
		return 0, Details{Status: StatusNoContent, Message: "course has no content"}
	}

	lessonWeights := make(map[uuid.UUID]float64, len(lessons))
	for _, l := range lessons {
		lessonWeights[l.ID] = LessonWeight(l, len(lessons))
	}

	raw := make(map[uuid.UUID]float64, len(contents))
	for _, c := range contents {
		lw, ok := lessonWeights[c.LessonID]
		if !ok {
			lw = 0.5
		}
		raw[c.ID] = ContentWeight(c, lw)
	}

	normalized, ok := Normalize(raw)
	if !ok {
		return 0, Details{Status: StatusError, Message: "content weights sum to zero"}
	}

	var ratio float64
	completed, partial := 0, 0
	for _, c := range contents {
		p := progress[c.ID]
		f := Fraction(p)
		ratio += normalized[c.ID] * f
		switch {
		case f >= 1:
			completed++
		case f > 0:
			partial++
		}
	}
	ratio = clamp01(ratio)

	return ratio * 100, Details{
		Status: StatusSuccess,
		Snapshot: &models.WeightedSnapshot{
			CompletionRatio: ratio,
			CompletedCount:  completed,
			PartialCount:    partial,
			TotalCount:      len(contents),
			ContentWeights:  normalized,
			LessonWeights:   lessonWeights,
			CalculatedAt:    now.UTC(),
		},
	}
}
