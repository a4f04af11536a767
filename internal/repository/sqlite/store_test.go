package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
	"github.com/vytor/mathtermind/internal/repository/sqlite"
	"github.com/vytor/mathtermind/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	db    *sql.DB
	store repository.Store
	repos repository.Repositories
}

func (s *StoreSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewStore(s.db)
	s.repos = s.store.Repos()
}

func (s *StoreSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *StoreSuite) TestInTxCommits() {
	ctx := context.Background()
	var id uuid.UUID
	err := s.store.InTx(ctx, func(r repository.Repositories) error {
		u := &models.User{Username: "ada"}
		if err := r.Users.Insert(ctx, u); err != nil {
			return err
		}
		id = u.ID
		return r.Users.AddPoints(ctx, u.ID, 40, 20)
	})
	s.Require().NoError(err)

	u, err := s.repos.Users.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(u)
	s.Equal(40, u.Points)
	s.Equal(20, u.Experience)
}

func (s *StoreSuite) TestInTxRollsBackOnError() {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.store.InTx(ctx, func(r repository.Repositories) error {
		if err := r.Users.Insert(ctx, &models.User{Username: "grace"}); err != nil {
			return err
		}
		return boom
	})
	s.Require().Error(err)
	s.True(apperrors.IsDatabase(err))
	s.ErrorIs(err, boom)

	u, err := s.repos.Users.GetByUsername(ctx, "grace")
	s.Require().NoError(err)
	s.Nil(u)
}

func (s *StoreSuite) TestInTxKeepsAppErrors() {
	ctx := context.Background()
	err := s.store.InTx(ctx, func(r repository.Repositories) error {
		return apperrors.NewValidationError("score", "out of range")
	})
	s.True(apperrors.IsValidation(err))
}

func (s *StoreSuite) TestInTxRollsBackOnPanic() {
	ctx := context.Background()
	s.Panics(func() {
		_ = s.store.InTx(ctx, func(r repository.Repositories) error {
			_ = r.Users.Insert(ctx, &models.User{Username: "linus"})
			panic("kaboom")
		})
	})

	u, err := s.repos.Users.GetByUsername(ctx, "linus")
	s.Require().NoError(err)
	s.Nil(u)
}

func (s *StoreSuite) TestMissingReadsReturnNil() {
	ctx := context.Background()
	u, err := s.repos.Users.Get(ctx, uuid.New())
	s.NoError(err)
	s.Nil(u)

	p, err := s.repos.Progress.Get(ctx, uuid.New(), uuid.New())
	s.NoError(err)
	s.Nil(p)

	err = s.repos.Users.AddPoints(ctx, uuid.New(), 1, 1)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestCompletedLessonUniqueness() {
	ctx := context.Background()
	user := testutil.CreateUser(s.T(), s.repos, "emmy", 0)
	course := testutil.CreateCourse(s.T(), s.repos, "Algebra", testutil.LessonSpec{})

	first := &models.CompletedLesson{UserID: user.ID, LessonID: course.Lessons[0].ID, CourseID: course.Course.ID, Score: testutil.Float(90)}
	s.Require().NoError(s.repos.Completions.InsertLesson(ctx, first))

	dup := &models.CompletedLesson{UserID: user.ID, LessonID: course.Lessons[0].ID, CourseID: course.Course.ID}
	err := s.repos.Completions.InsertLesson(ctx, dup)
	s.ErrorIs(err, repository.ErrDuplicate)

	got, err := s.repos.Completions.GetLesson(ctx, user.ID, course.Lessons[0].ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(first.ID, got.ID)
	s.InDelta(90.0, *got.Score, 1e-9)
}

func (s *StoreSuite) TestRewardGrantUniquePerEventTrigger() {
	ctx := context.Background()
	user := testutil.CreateUser(s.T(), s.repos, "sofia", 0)
	eventID := uuid.New()

	grant := func(trigger models.Trigger, event *uuid.UUID) error {
		return s.repos.Rewards.Insert(ctx, &models.RewardGrant{UserID: user.ID, Trigger: trigger, Points: 10, EventID: event})
	}
	s.Require().NoError(grant(models.TriggerLessonCompletion, &eventID))
	s.Require().NoError(grant(models.TriggerPerfectScore, &eventID))
	s.ErrorIs(grant(models.TriggerLessonCompletion, &eventID), repository.ErrDuplicate)

	// grants outside the outbox carry no event and never collide
	s.Require().NoError(grant(models.TriggerDailyGoalMet, nil))
	s.Require().NoError(grant(models.TriggerDailyGoalMet, nil))

	history, err := s.repos.Rewards.List(ctx, user.ID, 10)
	s.Require().NoError(err)
	s.Len(history, 4)
	var withEvent int
	for _, g := range history {
		if g.EventID != nil {
			s.Equal(eventID, *g.EventID)
			withEvent++
		}
	}
	s.Equal(2, withEvent)
}

func (s *StoreSuite) TestProgressRoundTrip() {
	ctx := context.Background()
	user := testutil.CreateUser(s.T(), s.repos, "sofia", 0)
	course := testutil.CreateCourse(s.T(), s.repos, "Geometry",
		testutil.LessonSpec{Contents: []models.ContentKind{models.ContentTheory, models.ContentAssessment}})

	lessonID := course.Lessons[0].ID
	p := &models.Progress{UserID: user.ID, CourseID: course.Course.ID, CurrentLessonID: &lessonID}
	p.ProgressData.AddCompletedContent(course.AllContents()[0].ID)
	s.Require().NoError(s.repos.Progress.Insert(ctx, p))

	p.ProgressPercentage = 50
	p.TimeSpent = 12
	p.ProgressData.LastPosition = &models.Position{LessonID: lessonID}
	s.Require().NoError(s.repos.Progress.Update(ctx, p))

	got, err := s.repos.Progress.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(50.0, got.ProgressPercentage)
	s.Equal(12, got.TimeSpent)
	s.Require().NotNil(got.CurrentLessonID)
	s.Equal(lessonID, *got.CurrentLessonID)
	s.True(got.ProgressData.CompletedContentIDs.Contains(course.AllContents()[0].ID))
	s.Require().NotNil(got.ProgressData.LastPosition)

	list, err := s.repos.Progress.ListByUser(ctx, user.ID)
	s.Require().NoError(err)
	s.Len(list, 1)

	missing := &models.Progress{ID: uuid.New()}
	s.ErrorIs(s.repos.Progress.Update(ctx, missing), repository.ErrNotFound)
}

func (s *StoreSuite) TestCourseListingsAreOrdered() {
	ctx := context.Background()
	course := testutil.CreateCourse(s.T(), s.repos, "Calculus",
		testutil.LessonSpec{Contents: []models.ContentKind{models.ContentTheory}},
		testutil.LessonSpec{Contents: []models.ContentKind{models.ContentExercise, models.ContentAssessment}},
	)

	lessons, err := s.repos.Courses.ListLessons(ctx, course.Course.ID)
	s.Require().NoError(err)
	s.Require().Len(lessons, 2)
	s.Equal(1, lessons[0].LessonOrder)
	s.Equal(2, lessons[1].LessonOrder)

	contents, err := s.repos.Courses.ListContents(ctx, course.Course.ID)
	s.Require().NoError(err)
	s.Require().Len(contents, 3)
	s.Equal(models.ContentTheory, contents[0].Kind)
	s.Equal(models.ContentAssessment, contents[2].Kind)

	courseID, err := s.repos.Courses.CourseForContent(ctx, contents[1].ID)
	s.Require().NoError(err)
	s.Equal(course.Course.ID, courseID)
}

func (s *StoreSuite) TestContentProgressFilters() {
	ctx := context.Background()
	user := testutil.CreateUser(s.T(), s.repos, "hypatia", 0)
	course := testutil.CreateCourse(s.T(), s.repos, "Numbers",
		testutil.LessonSpec{Contents: []models.ContentKind{models.ContentTheory, models.ContentExercise, models.ContentAssessment}})
	p := &models.Progress{UserID: user.ID, CourseID: course.Course.ID}
	s.Require().NoError(s.repos.Progress.Insert(ctx, p))

	scores := []*float64{nil, testutil.Float(100), testutil.Float(60)}
	statuses := []models.ContentStatus{models.StatusCompleted, models.StatusCompleted, models.StatusInProgress}
	for i, c := range course.AllContents() {
		s.Require().NoError(s.repos.ContentProgress.Insert(ctx, &models.UserContentProgress{
			UserID: user.ID, ContentID: c.ID, LessonID: c.LessonID, ProgressID: p.ID,
			Status: statuses[i], Score: scores[i], TimeSpent: 30,
		}))
	}

	n, err := s.repos.ContentProgress.Count(ctx, models.ContentProgressFilter{UserID: user.ID})
	s.Require().NoError(err)
	s.Equal(3, n)

	n, err = s.repos.ContentProgress.Count(ctx, models.ContentProgressFilter{UserID: user.ID, Status: models.StatusCompleted})
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.repos.ContentProgress.Count(ctx, models.ContentProgressFilter{UserID: user.ID, MinScore: testutil.Float(100)})
	s.Require().NoError(err)
	s.Equal(1, n)

	summary, err := s.repos.ContentProgress.ScoreSummary(ctx, models.ContentProgressFilter{UserID: user.ID})
	s.Require().NoError(err)
	s.Equal(2, summary.Count)
	s.Require().NotNil(summary.Average)
	s.InDelta(80.0, *summary.Average, 1e-9)

	times, err := s.repos.ContentProgress.InteractionTimes(ctx, user.ID, nil)
	s.Require().NoError(err)
	s.Len(times, 3)

	future := time.Now().Add(time.Hour)
	times, err = s.repos.ContentProgress.InteractionTimes(ctx, user.ID, &future)
	s.Require().NoError(err)
	s.Empty(times)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
