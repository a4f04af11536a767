package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/mathtermind/internal/db"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// One connection keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(context.Background(), sqlDB), "failed to apply migrations")
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// CreateUser inserts a user with the given points.
func CreateUser(t *testing.T, repos repository.Repositories, username string, points int) *models.User {
	u := &models.User{Username: username, Points: points}
	require.NoError(t, repos.Users.Insert(context.Background(), u))
	return u
}

// LessonSpec describes one lesson of a fixture course and the kinds of its
// content, in order.
type LessonSpec struct {
	Difficulty    int
	EstimatedTime int
	Contents      []models.ContentKind
}

// CourseFixture is a course with its lessons and content in order.
type CourseFixture struct {
	Course   *models.Course
	Lessons  []models.Lesson
	Contents map[uuid.UUID][]models.Content
}

// AllContents flattens the fixture content in lesson order.
func (f CourseFixture) AllContents() []models.Content {
	var out []models.Content
	for _, l := range f.Lessons {
		out = append(out, f.Contents[l.ID]...)
	}
	return out
}

// CreateCourse inserts a course with one lesson per spec.
func CreateCourse(t *testing.T, repos repository.Repositories, name string, lessons ...LessonSpec) CourseFixture {
	ctx := context.Background()
	course := &models.Course{Name: name, Subject: "math", Description: name + " course"}
	require.NoError(t, repos.Courses.Insert(ctx, course))

	fixture := CourseFixture{Course: course, Contents: map[uuid.UUID][]models.Content{}}
	base := time.Now().UTC()
	for i, spec := range lessons {
		difficulty := spec.Difficulty
		if difficulty == 0 {
			difficulty = 3
		}
		lesson := models.Lesson{
			CourseID:        course.ID,
			Title:           name + " lesson",
			LessonOrder:     i + 1,
			DifficultyLevel: difficulty,
			EstimatedTime:   spec.EstimatedTime,
			PointsReward:    10,
			CreatedAt:       base.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, repos.Courses.InsertLesson(ctx, &lesson))
		fixture.Lessons = append(fixture.Lessons, lesson)

		for j, kind := range spec.Contents {
			c := models.Content{
				LessonID:     lesson.ID,
				Title:        string(kind),
				Kind:         kind,
				ContentOrder: j + 1,
			}
			require.NoError(t, repos.Courses.InsertContent(ctx, &c))
			fixture.Contents[lesson.ID] = append(fixture.Contents[lesson.ID], c)
		}
	}
	return fixture
}
