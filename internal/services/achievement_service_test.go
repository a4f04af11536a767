package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/mathtermind/internal/catalog"
	"github.com/vytor/mathtermind/internal/criteria"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/services"
	"github.com/vytor/mathtermind/internal/testutil"
)

type AchievementServiceSuite struct {
	serviceSuite
}

func TestAchievementServiceSuite(t *testing.T) {
	suite.Run(t, new(AchievementServiceSuite))
}

func (s *AchievementServiceSuite) TestAwardAchievement_IsIdempotent() {
	a := s.addAchievement("Veteran", models.CategoryUser, 40, criteria.AccountAge{MinDays: 0})

	ua, err := s.achievements.AwardAchievement(s.ctx, s.user.ID, a.ID, nil)
	s.Require().NoError(err)
	s.Require().NotNil(ua)
	s.Equal(string(criteria.KindAccountAge), ua.ProgressData.CriteriaKind)

	again, err := s.achievements.AwardAchievement(s.ctx, s.user.ID, a.ID, nil)
	s.Require().NoError(err)
	s.Nil(again)
	s.Equal(40, s.reloadUser().Points)

	held, err := s.achievements.HasAchievement(s.ctx, s.user.ID, a.ID)
	s.Require().NoError(err)
	s.True(held)
}

func (s *AchievementServiceSuite) TestAwardAchievement_UnknownAchievementOrUser() {
	ua, err := s.achievements.AwardAchievement(s.ctx, s.user.ID, uuid.New(), nil)
	s.Require().NoError(err)
	s.Nil(ua)

	a := s.addAchievement("Veteran", models.CategoryUser, 40, criteria.AccountAge{MinDays: 0})
	_, err = s.achievements.AwardAchievement(s.ctx, uuid.New(), a.ID, nil)
	s.True(apperrors.IsNotFound(err))
}

func (s *AchievementServiceSuite) TestCheckAll_PointThresholdIsInclusive() {
	a := s.addAchievement("Point Collector", models.CategoryProgress, 25, criteria.TotalPoints{MinPoints: 500})
	almost := testutil.CreateUser(s.T(), s.repos, "almost", 499)
	exact := testutil.CreateUser(s.T(), s.repos, "exact", 500)

	awarded, err := s.achievements.CheckAllAchievements(s.ctx, almost.ID)
	s.Require().NoError(err)
	s.Empty(awarded)

	awarded, err = s.achievements.CheckAllAchievements(s.ctx, exact.ID)
	s.Require().NoError(err)
	s.Require().Len(awarded, 1)
	s.Equal(a.ID, awarded[0].AchievementID)
	s.Equal(500.0, awarded[0].ProgressData.Current)
	s.Equal(500.0, awarded[0].ProgressData.Required)

	u, err := s.repos.Users.Get(s.ctx, exact.ID)
	s.Require().NoError(err)
	s.Equal(525, u.Points)

	awarded, err = s.achievements.CheckAllAchievements(s.ctx, exact.ID)
	s.Require().NoError(err)
	s.Empty(awarded)
}

func (s *AchievementServiceSuite) TestCheckAll_AwardedPointsUnlockLaterEntries() {
	s.addAchievement("Early Bird", models.CategoryLearning, 100, criteria.AccountAge{MinDays: 0})
	s.addAchievement("Century", models.CategoryProgress, 5, criteria.TotalPoints{MinPoints: 100})

	awarded, err := s.achievements.CheckAllAchievements(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(awarded, 2)
	s.Equal(105, s.reloadUser().Points)
}

func (s *AchievementServiceSuite) TestCheckUserAchievements_OnlyUserCategory() {
	s.addAchievement("Veteran", models.CategoryUser, 10, criteria.AccountAge{MinDays: 0})
	s.addAchievement("Starter", models.CategoryProgress, 10, criteria.TotalPoints{MinPoints: 0})

	awarded, err := s.achievements.CheckUserAchievements(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(awarded, 1)

	_, err = s.achievements.CheckUserAchievements(s.ctx, uuid.New())
	s.True(apperrors.IsNotFound(err))
}

func (s *AchievementServiceSuite) TestPerfectScoreCountsOnlyCompletedContent() {
	flawless := s.addAchievement("Flawless", models.CategoryUser, 10, criteria.PerfectScore{Required: 1})
	course := testutil.CreateCourse(s.T(), s.repos, "Fractions", testutil.LessonSpec{
		Contents: []models.ContentKind{models.ContentExercise},
	})
	exercise := course.AllContents()[0]

	_, err := s.progress.UpdateContentProgress(s.ctx, s.user.ID, exercise.ID, models.StatusInProgress, testutil.Float(100), 30, nil)
	s.Require().NoError(err)
	awarded, err := s.achievements.CheckUserAchievements(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(awarded)

	_, err = s.progress.UpdateContentProgress(s.ctx, s.user.ID, exercise.ID, models.StatusCompleted, nil, 10, nil)
	s.Require().NoError(err)
	held, err := s.achievements.HasAchievement(s.ctx, s.user.ID, flawless.ID)
	s.Require().NoError(err)
	s.True(held)
}

func (s *AchievementServiceSuite) TestCheckStreakAchievements() {
	s.addAchievement("Persistent", models.CategoryStreak, 30, criteria.Streak{MinDays: 7})

	awarded, err := s.achievements.CheckStreakAchievements(s.ctx, s.user.ID, 6)
	s.Require().NoError(err)
	s.Empty(awarded)

	awarded, err = s.achievements.CheckStreakAchievements(s.ctx, s.user.ID, 7)
	s.Require().NoError(err)
	s.Len(awarded, 1)

	_, err = s.achievements.CheckStreakAchievements(s.ctx, s.user.ID, -1)
	s.True(apperrors.IsValidation(err))
}

func (s *AchievementServiceSuite) TestCheckMasteryAchievements() {
	s.addAchievement("Algebra Ace", models.CategoryMastery, 50, criteria.Mastery{Subject: "algebra", MinLevel: 0.9})
	s.addAchievement("Maths Genius", models.CategoryMastery, 50, criteria.Mastery{Subject: criteria.AnySubject, MinLevel: 0.95})

	awarded, err := s.achievements.CheckMasteryAchievements(s.ctx, s.user.ID, "geometry", 0.92)
	s.Require().NoError(err)
	s.Empty(awarded)

	awarded, err = s.achievements.CheckMasteryAchievements(s.ctx, s.user.ID, "algebra", 0.92)
	s.Require().NoError(err)
	s.Len(awarded, 1)

	awarded, err = s.achievements.CheckMasteryAchievements(s.ctx, s.user.ID, "geometry", 0.95)
	s.Require().NoError(err)
	s.Len(awarded, 1)

	_, err = s.achievements.CheckMasteryAchievements(s.ctx, s.user.ID, "", 1)
	s.True(apperrors.IsValidation(err))
}

func (s *AchievementServiceSuite) TestCheckSocialAchievements() {
	s.addAchievement("Helping Hand", models.CategorySocial, 20, criteria.HelpOthers{MinHelp: 5})
	s.addAchievement("Community Voice", models.CategorySocial, 20, criteria.CommunityParticipation{MinScore: 100})

	awarded, err := s.achievements.CheckSocialAchievements(s.ctx, s.user.ID, services.SocialActivity{HelpGiven: 5, ParticipationScore: 99})
	s.Require().NoError(err)
	s.Len(awarded, 1)
}

func (s *AchievementServiceSuite) TestCourseCompletionAwardedThroughOutbox() {
	graduate := s.addAchievement("Course Graduate", models.CategoryProgress, 100, criteria.CourseCompletion{})
	course := testutil.CreateCourse(s.T(), s.repos, "Algebra", testutil.LessonSpec{})

	_, err := s.progress.CompleteLesson(s.ctx, s.user.ID, course.Lessons[0].ID, course.Course.ID, nil, 5)
	s.Require().NoError(err)

	held, err := s.achievements.HasAchievement(s.ctx, s.user.ID, graduate.ID)
	s.Require().NoError(err)
	s.True(held)

	list, err := s.achievements.ListUserAchievements(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Course Graduate", list[0].Name)
	s.Equal(models.CategoryProgress, list[0].ProgressData.Source)
}

func (s *AchievementServiceSuite) TestCheckProgressAchievements_ForeignProgressIsNotFound() {
	course := testutil.CreateCourse(s.T(), s.repos, "Algebra", testutil.LessonSpec{})
	other := testutil.CreateUser(s.T(), s.repos, "other", 0)
	p, err := s.progress.CreateCourseProgress(s.ctx, other.ID, course.Course.ID)
	s.Require().NoError(err)

	_, err = s.achievements.CheckProgressAchievements(s.ctx, s.user.ID, p.ID)
	s.True(apperrors.IsNotFound(err))
}

func (s *AchievementServiceSuite) TestGetAchievementProgress() {
	rich := testutil.CreateUser(s.T(), s.repos, "rich", 500)
	a := s.addAchievement("Point Hoarder", models.CategoryProgress, 50, criteria.TotalPoints{MinPoints: 1000})

	est, err := s.achievements.GetAchievementProgress(s.ctx, rich.ID, a.ID)
	s.Require().NoError(err)
	s.Equal(50.0, est.Percentage)
	s.Equal(criteria.EffortHigh, est.Effort)

	_, err = s.achievements.GetAchievementProgress(s.ctx, rich.ID, uuid.New())
	s.True(apperrors.IsNotFound(err))
}

func (s *AchievementServiceSuite) TestGetRecommendedAchievements() {
	rich := testutil.CreateUser(s.T(), s.repos, "rich", 500)
	hoarder := s.addAchievement("Point Hoarder", models.CategoryProgress, 50, criteria.TotalPoints{MinPoints: 1000})
	quick := s.addAchievement("Quick Learner", models.CategoryLearning, 20, criteria.LessonsCompleted{Required: 3})
	held := s.addAchievement("Veteran", models.CategoryUser, 10, criteria.AccountAge{MinDays: 0})
	secret := &models.Achievement{
		Name:     "Secret",
		Category: models.CategoryProgress,
		Points:   500,
		IsHidden: true,
		Criteria: criteria.Spec{Criteria: criteria.TotalPoints{MinPoints: 600}},
	}
	s.Require().NoError(s.repos.Achievements.Insert(s.ctx, secret))
	_, err := s.achievements.AwardAchievement(s.ctx, rich.ID, held.ID, nil)
	s.Require().NoError(err)

	recs, err := s.achievements.GetRecommendedAchievements(s.ctx, rich.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(hoarder.ID, recs[0].Achievement.ID)
	s.Equal(quick.ID, recs[1].Achievement.ID)
	s.Greater(recs[0].Priority, recs[1].Priority)

	recs, err = s.achievements.GetRecommendedAchievements(s.ctx, rich.ID, 1)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *AchievementServiceSuite) TestSeedCatalog_InsertsOnce() {
	cat, err := catalog.Load("")
	s.Require().NoError(err)
	s.Require().NotEmpty(cat.Achievements)

	inserted, err := s.achievements.SeedCatalog(s.ctx, cat.Achievements)
	s.Require().NoError(err)
	s.Equal(len(cat.Achievements), inserted)

	inserted, err = s.achievements.SeedCatalog(s.ctx, cat.Achievements)
	s.Require().NoError(err)
	s.Zero(inserted)

	visible, err := s.achievements.ListAchievements(s.ctx, models.AchievementFilter{})
	s.Require().NoError(err)
	all, err := s.achievements.ListAchievements(s.ctx, models.AchievementFilter{IncludeHidden: true})
	s.Require().NoError(err)
	s.Len(all, len(cat.Achievements))
	s.Less(len(visible), len(all))

	streaks, err := s.achievements.ListAchievements(s.ctx, models.AchievementFilter{Category: models.CategoryStreak})
	s.Require().NoError(err)
	for _, a := range streaks {
		s.Equal(models.CategoryStreak, a.Category)
	}
}
