package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/mathtermind/internal/catalog"
	"github.com/vytor/mathtermind/internal/criteria"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	assert.Empty(t, c.Skipped)
	require.NotEmpty(t, c.Achievements)

	byName := map[string]criteria.Criteria{}
	for _, a := range c.Achievements {
		byName[a.Name] = a.Criteria.Criteria
	}
	assert.Equal(t, criteria.LessonsCompleted{Required: 1}, byName["First Steps"])
	assert.Equal(t, criteria.Streak{MinDays: 7}, byName["Persistent"])
	assert.Equal(t, criteria.TotalPoints{MinPoints: 500}, byName["Point Collector"])
}

func TestParse_SkipsUnknownCriteria(t *testing.T) {
	doc := []byte(`
achievements:
  - name: Good
    category: Progress
    points: 5
    tier: silver
    criteria: {type: total_points, min_points: 10}
  - name: Bad
    category: progress
    criteria: {type: lessons_started}
`)
	c, err := catalog.Parse(doc)
	require.NoError(t, err)
	require.Len(t, c.Achievements, 1)
	assert.Equal(t, "progress", c.Achievements[0].Category)
	require.NotNil(t, c.Achievements[0].Tier)
	assert.Equal(t, "silver", *c.Achievements[0].Tier)

	require.Len(t, c.Skipped, 1)
	assert.Equal(t, "Bad", c.Skipped[0].Name)
	assert.ErrorIs(t, c.Skipped[0].Reason, criteria.ErrUnknownKind)
}

func TestParse_Errors(t *testing.T) {
	_, err := catalog.Parse([]byte(`achievements: []`))
	assert.Error(t, err)

	_, err = catalog.Parse([]byte("achievements:\n  - name: A\n    criteria: {type: first_lesson}\n  - name: A\n    criteria: {type: first_lesson}\n"))
	assert.Error(t, err)

	_, err = catalog.Parse([]byte(`: not yaml`))
	assert.Error(t, err)
}

func TestLoad_OverridePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("achievements:\n  - name: Only\n    category: user\n    criteria: {type: account_age, min_days: 1}\n"), 0o600))

	c, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, c.Achievements, 1)
	assert.Equal(t, "Only", c.Achievements[0].Name)

	_, err = catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
