package criteria_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/mathtermind/internal/criteria"
)

func TestTotalPoints_BoundaryIsInclusive(t *testing.T) {
	c, err := criteria.ParseJSON([]byte(`{"type":"total_points","min_points":500}`))
	require.NoError(t, err)

	assert.True(t, criteria.Met(c, criteria.State{Points: 500}))
	assert.False(t, criteria.Met(c, criteria.State{Points: 499}))
}

func TestCourseCompletion_RequiresAllListedCourses(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := criteria.CourseCompletion{CourseIDs: []uuid.UUID{a, b}}

	assert.False(t, criteria.Met(c, criteria.State{CompletedCourses: map[uuid.UUID]bool{a: true}}))
	assert.True(t, criteria.Met(c, criteria.State{CompletedCourses: map[uuid.UUID]bool{a: true, b: true}}))
}

func TestCourseCompletion_EmptyListUsesProgressContext(t *testing.T) {
	c := criteria.CourseCompletion{}

	assert.False(t, criteria.Met(c, criteria.State{}), "no context means nothing to measure")
	assert.False(t, criteria.Met(c, criteria.State{Progress: &criteria.ProgressContext{Percentage: 60}}))
	assert.True(t, criteria.Met(c, criteria.State{Progress: &criteria.ProgressContext{IsCompleted: true, Percentage: 100}}))
}

func TestStreak_UsesCurrentStreakAndLegacyParam(t *testing.T) {
	c, err := criteria.Parse(map[string]any{"type": "streak", "required_streak": 7})
	require.NoError(t, err)
	assert.Equal(t, criteria.Streak{MinDays: 7}, c)

	assert.False(t, criteria.Met(c, criteria.State{CurrentStreak: 6}))
	assert.True(t, criteria.Met(c, criteria.State{CurrentStreak: 7}))
}

func TestContextualKindsAreFalseWithoutContext(t *testing.T) {
	kinds := []criteria.Criteria{
		criteria.ProgressPercentage{MinPercentage: 10},
		criteria.PointsEarned{MinPoints: 1},
		criteria.Mastery{Subject: criteria.AnySubject, MinLevel: 1},
		criteria.HelpOthers{MinHelp: 1},
		criteria.CommunityParticipation{MinScore: 1},
	}
	for _, c := range kinds {
		assert.False(t, criteria.Met(c, criteria.State{Points: 100000}), string(c.Kind()))
	}
}

func TestMastery_SubjectMatching(t *testing.T) {
	algebra := criteria.Mastery{Subject: "algebra", MinLevel: 80}
	anySubject := criteria.Mastery{Subject: criteria.AnySubject, MinLevel: 80}
	state := criteria.State{Mastery: &criteria.MasteryContext{Subject: "geometry", Level: 90}}

	assert.False(t, criteria.Met(algebra, state))
	assert.True(t, criteria.Met(anySubject, state))
}

func TestParse_Defaults(t *testing.T) {
	c, err := criteria.Parse(map[string]any{"type": "first_lesson"})
	require.NoError(t, err)
	assert.Equal(t, criteria.LessonsCompleted{Required: 1}, c)

	c, err = criteria.Parse(map[string]any{"type": "mastery", "mastery_level": 3})
	require.NoError(t, err)
	assert.Equal(t, criteria.Mastery{Subject: criteria.AnySubject, MinLevel: 3}, c)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"missing type", map[string]any{"min_points": 5}},
		{"unknown type", map[string]any{"type": "moon_phase"}},
		{"missing threshold", map[string]any{"type": "total_points"}},
		{"negative threshold", map[string]any{"type": "study_time", "min_minutes": -5}},
		{"fractional count", map[string]any{"type": "courses_completed", "required": 1.5}},
		{"bad course id", map[string]any{"type": "course_completion", "course_ids": []any{"nope"}}},
		{"percentage out of range", map[string]any{"type": "progress_percentage", "min_percentage": 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := criteria.Parse(tt.doc)
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}

	_, err := criteria.Parse(map[string]any{"type": "moon_phase"})
	assert.ErrorIs(t, err, criteria.ErrUnknownKind)
}

func TestSpec_JSONRoundTrip(t *testing.T) {
	id := uuid.New()
	spec := criteria.Spec{Criteria: criteria.CourseCompletion{CourseIDs: []uuid.UUID{id}}}

	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"course_completion"`)

	var out criteria.Spec
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, spec.Criteria, out.Criteria)
}

func TestSpec_ScanFromColumn(t *testing.T) {
	var spec criteria.Spec
	require.NoError(t, spec.Scan(`{"type":"study_time","min_minutes":120}`))
	assert.Equal(t, criteria.StudyTime{MinMinutes: 120}, spec.Criteria)

	assert.Error(t, spec.Scan(42))
}
