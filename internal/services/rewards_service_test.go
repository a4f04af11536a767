package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/gamification"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/services"
	"github.com/vytor/mathtermind/internal/testutil"
)

type RewardsServiceSuite struct {
	serviceSuite
}

func TestRewardsServiceSuite(t *testing.T) {
	suite.Run(t, new(RewardsServiceSuite))
}

func (s *RewardsServiceSuite) TestCalculateRewardWithStreak() {
	reward := s.rewards.CalculateRewardWithStreak(models.TriggerLessonCompletion, gamification.RewardContext{
		Difficulty: gamification.DifficultyHard,
		Score:      testutil.Float(95),
	}, 7, 0)

	// 10 * 1.3 * 1.2 * 1.2 truncates to 18
	s.Equal(18, reward.Points)
	s.Equal(9, reward.Experience)
	s.Len(reward.MultipliersApplied, 3)
	s.Require().Len(reward.Rewards, 1)
	s.Equal(models.RewardStreakBonus, reward.Rewards[0].Type)
	s.Equal(35, reward.Rewards[0].BonusPoints)
}

func (s *RewardsServiceSuite) TestCalculateReward_InvalidInputYieldsZero() {
	s.True(s.rewards.CalculateReward(s.ctx, s.user.ID, "BOGUS", gamification.RewardContext{}).IsZero())
	s.True(s.rewards.CalculateReward(s.ctx, s.user.ID, models.TriggerQuizCompletion,
		gamification.RewardContext{Score: testutil.Float(120)}).IsZero())
	s.True(s.rewards.CalculateReward(s.ctx, uuid.New(), models.TriggerQuizCompletion, gamification.RewardContext{}).IsZero())
}

func (s *RewardsServiceSuite) TestCalculateReward_UsesCurrentPointsForLevelUps() {
	rich := testutil.CreateUser(s.T(), s.repos, "rich", 95)

	reward := s.rewards.CalculateReward(s.ctx, rich.ID, models.TriggerLessonCompletion, gamification.RewardContext{})
	s.Equal(10, reward.Points)
	s.Require().Len(reward.Rewards, 1)
	s.Equal(models.RewardLevelUp, reward.Rewards[0].Type)
	s.Equal(2, reward.Rewards[0].Level)
}

func (s *RewardsServiceSuite) TestAwardReward_AppliesPointsBonusesAndHistory() {
	reward := s.rewards.CalculateRewardWithStreak(models.TriggerCourseCompletion, gamification.RewardContext{}, 0, 0)

	s.True(s.rewards.AwardReward(s.ctx, s.user.ID, reward))

	user := s.reloadUser()
	s.Equal(150, user.Points)
	s.Equal(75, user.Experience)

	history, err := s.rewards.GetRewardHistory(s.ctx, s.user.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.TriggerCourseCompletion, history[0].Trigger)
	s.Equal(100, history[0].Points)
	s.Equal(50, history[0].Rewards.BonusPoints())
}

func (s *RewardsServiceSuite) TestAwardReward_RejectsEmptyAndUnknownUser() {
	s.False(s.rewards.AwardReward(s.ctx, s.user.ID, models.Reward{}))

	reward := s.rewards.CalculateRewardWithStreak(models.TriggerQuizCompletion, gamification.RewardContext{}, 0, 0)
	s.False(s.rewards.AwardReward(s.ctx, uuid.New(), reward))

	history, err := s.rewards.GetRewardHistory(s.ctx, s.user.ID, 10)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *RewardsServiceSuite) TestAwardReward_SameEventTriggerGrantedOnce() {
	eventID := uuid.New()
	reward := s.rewards.CalculateRewardWithStreak(models.TriggerQuizCompletion, gamification.RewardContext{}, 0, 0)
	reward.EventID = &eventID

	s.True(s.rewards.AwardReward(s.ctx, s.user.ID, reward))
	s.True(s.rewards.AwardReward(s.ctx, s.user.ID, reward))

	s.Equal(15, s.reloadUser().Points)
	history, err := s.rewards.GetRewardHistory(s.ctx, s.user.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Require().NotNil(history[0].EventID)
	s.Equal(eventID, *history[0].EventID)
}

// failingRewards fails AwardReward for a trigger a set number of times.
type failingRewards struct {
	services.RewardsService
	failures map[models.Trigger]int
}

func (f *failingRewards) AwardReward(ctx context.Context, userID uuid.UUID, reward models.Reward) bool {
	if f.failures[reward.Trigger] > 0 {
		f.failures[reward.Trigger]--
		return false
	}
	return f.RewardsService.AwardReward(ctx, userID, reward)
}

func (s *RewardsServiceSuite) TestRewardsConsumer_RetryDoesNotRegrantEarlierTriggers() {
	rewards := &failingRewards{
		RewardsService: s.rewards,
		failures:       map[models.Trigger]int{models.TriggerPerfectScore: 1},
	}
	dispatcher := outbox.NewDispatcher(s.store, outbox.DefaultMaxAttempts, services.NewRewardsConsumer(rewards))
	progress := services.NewProgressService(s.store, s.loader, nil)
	course := testutil.CreateCourse(s.T(), s.repos, "Decimals", testutil.LessonSpec{}, testutil.LessonSpec{})

	_, err := progress.CompleteLesson(s.ctx, s.user.ID, course.Lessons[0].ID, course.Course.ID, testutil.Float(100), 10)
	s.Require().NoError(err)

	summary, err := dispatcher.Dispatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(outbox.Summary{Processed: 0, Failed: 1}, summary)
	s.Equal([]models.Trigger{models.TriggerLessonCompletion}, s.grantTriggers())

	summary, err = dispatcher.Dispatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(outbox.Summary{Processed: 1, Failed: 0}, summary)

	s.ElementsMatch([]models.Trigger{models.TriggerLessonCompletion, models.TriggerPerfectScore}, s.grantTriggers())
	s.Equal(57, s.reloadUser().Points)
}

func (s *RewardsServiceSuite) TestGetUserLevel() {
	u := testutil.CreateUser(s.T(), s.repos, "levelled", 100)

	info, err := s.rewards.GetUserLevel(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(2, info.Level)
	s.Equal(150, info.PointsToNextLevel)

	_, err = s.rewards.GetUserLevel(s.ctx, uuid.New())
	s.True(apperrors.IsNotFound(err))
}

func (s *RewardsServiceSuite) TestGetStreakInfo() {
	course := testutil.CreateCourse(s.T(), s.repos, "Algebra", testutil.LessonSpec{}, testutil.LessonSpec{}, testutil.LessonSpec{})
	now := time.Now().UTC()
	for i, l := range course.Lessons {
		s.Require().NoError(s.repos.Completions.InsertLesson(s.ctx, &models.CompletedLesson{
			UserID:      s.user.ID,
			LessonID:    l.ID,
			CourseID:    course.Course.ID,
			CompletedAt: now.AddDate(0, 0, -i),
		}))
	}

	info, err := s.rewards.GetStreakInfo(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal(3, info.Current)
	s.Equal(3, info.Longest)
	s.Equal(1.1, info.Multiplier)
	s.Require().NotNil(info.NextMilestone)
	s.Equal(7, *info.NextMilestone)
	s.Equal(4, info.DaysToNextMilestone)
}

func (s *RewardsServiceSuite) TestTopUsers_RefreshesAfterAward() {
	testutil.CreateUser(s.T(), s.repos, "leader", 300)
	testutil.CreateUser(s.T(), s.repos, "runner", 200)

	top, err := s.rewards.TopUsers(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("leader", top[0].Username)
	s.Equal(1, top[0].Rank)
	s.Equal(3, top[0].Level)

	reward := models.Reward{Trigger: models.TriggerDailyGoalMet, Points: 500}
	s.Require().True(s.rewards.AwardReward(s.ctx, s.user.ID, reward))

	top, err = s.rewards.TopUsers(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal(s.user.ID, top[0].UserID)
	s.Equal(500, top[0].Points)

	_, err = s.rewards.TopUsers(s.ctx, 101)
	s.True(apperrors.IsValidation(err))
}

func TestRewardTriggers(t *testing.T) {
	courseID := uuid.New()

	tests := []struct {
		name     string
		event    models.ProgressEvent
		triggers []models.Trigger
		rc       gamification.RewardContext
	}{
		{
			name: "lesson",
			event: models.ProgressEvent{Kind: models.EventLessonCompleted, Payload: models.EventPayload{
				DifficultyLevel:  4,
				CompletedQuickly: true,
			}},
			triggers: []models.Trigger{models.TriggerLessonCompletion},
			rc:       gamification.RewardContext{Difficulty: gamification.DifficultyHard, CompletedQuickly: true},
		},
		{
			name: "perfect lesson",
			event: models.ProgressEvent{Kind: models.EventLessonCompleted, Payload: models.EventPayload{
				Score: testutil.Float(100),
			}},
			triggers: []models.Trigger{models.TriggerLessonCompletion, models.TriggerPerfectScore},
			rc:       gamification.RewardContext{Difficulty: gamification.DifficultyMedium, Score: testutil.Float(100)},
		},
		{
			name:     "course",
			event:    models.ProgressEvent{Kind: models.EventCourseCompleted, Payload: models.EventPayload{CourseID: &courseID}},
			triggers: []models.Trigger{models.TriggerCourseCompletion},
		},
		{
			name: "assessment",
			event: models.ProgressEvent{Kind: models.EventContentCompleted, Payload: models.EventPayload{
				ContentKind: models.ContentAssessment,
				Score:       testutil.Float(75),
			}},
			triggers: []models.Trigger{models.TriggerQuizCompletion},
			rc:       gamification.RewardContext{Score: testutil.Float(75)},
		},
		{
			name:  "theory",
			event: models.ProgressEvent{Kind: models.EventContentCompleted, Payload: models.EventPayload{ContentKind: models.ContentTheory}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triggers, rc := services.RewardTriggers(tt.event)
			assert.Equal(t, tt.triggers, triggers)
			assert.Equal(t, tt.rc, rc)
		})
	}
}
