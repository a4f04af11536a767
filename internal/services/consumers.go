package services

import (
	"context"
	"fmt"

	"github.com/vytor/mathtermind/internal/gamification"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/repository"
)

// Consumer names recorded on delivered events.
const (
	RewardsConsumerName      = "rewards"
	AchievementsConsumerName = "achievements"
)

type rewardsConsumer struct {
	rewards RewardsService
}

// NewRewardsConsumer grants points for completion events.
func NewRewardsConsumer(rewards RewardsService) outbox.Consumer {
	return &rewardsConsumer{rewards: rewards}
}

func (c *rewardsConsumer) Name() string { return RewardsConsumerName }

func (c *rewardsConsumer) Handle(ctx context.Context, event models.ProgressEvent) error {
	log := logger.FromContext(ctx)
	triggers, rc := RewardTriggers(event)
	if len(triggers) == 0 {
		log.Debug("event earns no reward: kind=%s", event.Kind)
		return nil
	}

	for _, trigger := range triggers {
		reward := c.rewards.CalculateReward(ctx, event.UserID, trigger, rc)
		if reward.IsZero() {
			return fmt.Errorf("no reward computed for %s", trigger)
		}
		eventID := event.ID
		reward.EventID = &eventID
		if !c.rewards.AwardReward(ctx, event.UserID, reward) {
			return fmt.Errorf("failed to award %s", trigger)
		}
	}
	return nil
}

// RewardTriggers maps a completion event onto the triggers it earns.
func RewardTriggers(event models.ProgressEvent) ([]models.Trigger, gamification.RewardContext) {
	p := event.Payload
	switch event.Kind {
	case models.EventLessonCompleted:
		rc := gamification.RewardContext{
			Difficulty:       gamification.DifficultyForLevel(p.DifficultyLevel),
			Score:            p.Score,
			CompletedQuickly: p.CompletedQuickly,
		}
		triggers := []models.Trigger{models.TriggerLessonCompletion}
		if p.Score != nil && *p.Score >= 100 {
			triggers = append(triggers, models.TriggerPerfectScore)
		}
		return triggers, rc
	case models.EventCourseCompleted:
		return []models.Trigger{models.TriggerCourseCompletion}, gamification.RewardContext{}
	case models.EventContentCompleted:
		if p.ContentKind == models.ContentAssessment {
			return []models.Trigger{models.TriggerQuizCompletion}, gamification.RewardContext{Score: p.Score}
		}
	}
	return nil, gamification.RewardContext{}
}

type achievementsConsumer struct {
	achievements AchievementService
	store        repository.Store
}

// NewAchievementsConsumer re-evaluates achievements after completion events.
func NewAchievementsConsumer(achievements AchievementService, store repository.Store) outbox.Consumer {
	return &achievementsConsumer{achievements: achievements, store: store}
}

func (c *achievementsConsumer) Name() string { return AchievementsConsumerName }

func (c *achievementsConsumer) Handle(ctx context.Context, event models.ProgressEvent) error {
	log := logger.FromContext(ctx)

	awarded, err := c.achievements.CheckAllAchievements(ctx, event.UserID)
	if err != nil {
		return err
	}
	total := len(awarded)

	if event.Payload.CourseID != nil {
		progress, err := c.store.Repos().Progress.Get(ctx, event.UserID, *event.Payload.CourseID)
		if err != nil {
			return err
		}
		if progress != nil {
			more, err := c.achievements.CheckProgressAchievements(ctx, event.UserID, progress.ID)
			if err != nil {
				return err
			}
			total += len(more)
		}
	}
	log.Debug("achievements awarded for event: %d", total)
	return nil
}
