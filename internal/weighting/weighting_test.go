package weighting_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/weighting"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func lesson(order, difficulty int) models.Lesson {
	return models.Lesson{ID: uuid.New(), LessonOrder: order, DifficultyLevel: difficulty}
}

func content(lessonID uuid.UUID, kind models.ContentKind) models.Content {
	return models.Content{ID: uuid.New(), LessonID: lessonID, Kind: kind}
}

func f(v float64) *float64 { return &v }

func TestCompute_SingleLessonScenario(t *testing.T) {
	l := lesson(1, 1)
	c := content(l.ID, models.ContentTheory)

	pct, details := weighting.Compute(
		[]models.Lesson{l},
		[]models.Content{c},
		map[uuid.UUID]*models.UserContentProgress{c.ID: {Status: models.StatusCompleted}},
		now,
	)

	require.Equal(t, weighting.StatusSuccess, details.Status)
	require.NotNil(t, details.Snapshot)
	assert.InDelta(t, 0.8, details.Snapshot.LessonWeights[l.ID], 1e-9)
	assert.InDelta(t, 1.0, details.Snapshot.ContentWeights[c.ID], 1e-9)
	assert.InDelta(t, 100.0, pct, 1e-9)
	assert.Equal(t, 1, details.Snapshot.CompletedCount)
	assert.Equal(t, now, details.Snapshot.CalculatedAt)
}

func TestCompute_EmptyInputs(t *testing.T) {
	pct, details := weighting.Compute(nil, nil, nil, now)
	assert.Zero(t, pct)
	assert.Equal(t, weighting.StatusNoLessons, details.Status)

	pct, details = weighting.Compute([]models.Lesson{lesson(1, 3)}, nil, nil, now)
	assert.Zero(t, pct)
	assert.Equal(t, weighting.StatusNoContent, details.Status)
	assert.Nil(t, details.Snapshot)
}

func TestCompute_ZeroWeightsIsError(t *testing.T) {
	l := lesson(1, 3)
	c := content(l.ID, models.ContentTheory)
	c.Metadata.Importance = f(-2)

	pct, details := weighting.Compute([]models.Lesson{l}, []models.Content{c}, nil, now)
	assert.Zero(t, pct)
	assert.Equal(t, weighting.StatusError, details.Status)
	assert.NotEmpty(t, details.Message)
}

func TestCompute_NormalizedWeightsSumToOne(t *testing.T) {
	l1, l2, l3 := lesson(1, 1), lesson(2, 4), lesson(3, 5)
	contents := []models.Content{
		content(l1.ID, models.ContentTheory),
		content(l1.ID, models.ContentExercise),
		content(l2.ID, models.ContentAssessment),
		content(l2.ID, models.ContentInteractive),
		content(l3.ID, models.ContentResource),
	}
	contents[1].Metadata.Importance = f(2.5)
	contents[4].Metadata.Points = f(0.25)

	_, details := weighting.Compute([]models.Lesson{l1, l2, l3}, contents, nil, now)
	require.NotNil(t, details.Snapshot)

	var sum float64
	for _, w := range details.Snapshot.ContentWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCompute_CompletionIsMonotonic(t *testing.T) {
	l1, l2 := lesson(1, 2), lesson(2, 3)
	contents := []models.Content{
		content(l1.ID, models.ContentTheory),
		content(l1.ID, models.ContentAssessment),
		content(l2.ID, models.ContentExercise),
		content(l2.ID, models.ContentTheory),
	}
	lessons := []models.Lesson{l1, l2}
	progress := map[uuid.UUID]*models.UserContentProgress{}

	prev, _ := weighting.Compute(lessons, contents, progress, now)
	assert.Zero(t, prev)
	for _, c := range contents {
		progress[c.ID] = &models.UserContentProgress{Status: models.StatusCompleted}
		pct, _ := weighting.Compute(lessons, contents, progress, now)
		assert.GreaterOrEqual(t, pct, prev)
		prev = pct
	}
	assert.InDelta(t, 100.0, prev, 1e-9)
}

func TestCompute_PartialCreditFromScore(t *testing.T) {
	l := lesson(1, 3)
	c1, c2 := content(l.ID, models.ContentTheory), content(l.ID, models.ContentTheory)
	progress := map[uuid.UUID]*models.UserContentProgress{
		c1.ID: {Status: models.StatusInProgress, Score: f(50)},
		c2.ID: {Status: models.StatusInProgress},
	}

	pct, details := weighting.Compute([]models.Lesson{l}, []models.Content{c1, c2}, progress, now)
	assert.InDelta(t, 25.0, pct, 1e-9)
	assert.Equal(t, 1, details.Snapshot.PartialCount)
	assert.Equal(t, 0, details.Snapshot.CompletedCount)
}

func TestLessonWeight_Bounds(t *testing.T) {
	for order := -1; order <= 12; order++ {
		for diff := -1; diff <= 8; diff++ {
			w := weighting.LessonWeight(models.Lesson{LessonOrder: order, DifficultyLevel: diff}, 10)
			assert.GreaterOrEqual(t, w, 0.5)
			assert.LessOrEqual(t, w, 1.0)
		}
	}
	assert.Equal(t, 1.0, weighting.LessonWeight(models.Lesson{LessonOrder: 3, DifficultyLevel: 5}, 3))
}

func TestKindMultiplierAndFraction(t *testing.T) {
	assert.Equal(t, 2.0, weighting.KindMultiplier(models.ContentAssessment))
	assert.Equal(t, 1.5, weighting.KindMultiplier(models.ContentExercise))
	assert.Equal(t, 1.0, weighting.KindMultiplier(models.ContentResource))

	assert.Zero(t, weighting.Fraction(nil))
	assert.Equal(t, 1.0, weighting.Fraction(&models.UserContentProgress{Status: models.StatusCompleted, Score: f(10)}))
	assert.Equal(t, 1.0, weighting.Fraction(&models.UserContentProgress{Status: models.StatusInProgress, Score: f(180)}))
	assert.False(t, math.IsNaN(weighting.Fraction(&models.UserContentProgress{Score: f(0)})))
}

func TestNormalize(t *testing.T) {
	_, ok := weighting.Normalize(map[uuid.UUID]float64{uuid.New(): 0})
	assert.False(t, ok)

	a, b := uuid.New(), uuid.New()
	out, ok := weighting.Normalize(map[uuid.UUID]float64{a: 1, b: 3})
	require.True(t, ok)
	assert.InDelta(t, 0.25, out[a], 1e-9)
	assert.InDelta(t, 0.75, out[b], 1e-9)
}
