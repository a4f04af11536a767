package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/cache"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/gamification"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

var errAlreadyGranted = errors.New("reward already granted for event")

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// RewardsService computes and applies points, experience and level rewards
type RewardsService interface {
	// CalculateReward never fails; an invalid trigger or context yields the zero reward.
	CalculateReward(ctx context.Context, userID uuid.UUID, trigger models.Trigger, rc gamification.RewardContext) models.Reward
	CalculateRewardWithStreak(trigger models.Trigger, rc gamification.RewardContext, streakDays, currentPoints int) models.Reward
	// AwardReward applies reward atomically and reports whether it was applied.
	AwardReward(ctx context.Context, userID uuid.UUID, reward models.Reward) bool
	GetUserLevel(ctx context.Context, userID uuid.UUID) (*gamification.LevelInfo, error)
	GetStreakInfo(ctx context.Context, userID uuid.UUID) (*gamification.StreakInfo, error)
	GetRewardHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardGrant, error)
	TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type rewardsService struct {
	store  repository.Store
	loader *cache.Loader
}

// NewRewardsService creates a new RewardsService
func NewRewardsService(store repository.Store, loader *cache.Loader) RewardsService {
	return &rewardsService{store: store, loader: loader}
}

func (s *rewardsService) CalculateReward(ctx context.Context, userID uuid.UUID, trigger models.Trigger, rc gamification.RewardContext) models.Reward {
	log := logger.FromContext(ctx).WithPrefix("rewards_service")
	log.Debug("calculating reward: user_id=%s, trigger=%s", userID, trigger)

	repos := s.store.Repos()
	user, err := requireUser(ctx, repos, userID)
	if err != nil {
		log.Warn("cannot calculate reward: %v", err)
		return models.Reward{}
	}
	times, err := activityTimes(ctx, repos, userID, nil)
	if err != nil {
		log.Warn("cannot load activity for streak: %v", err)
		return models.Reward{}
	}
	streak := gamification.CurrentStreak(times, time.Now())
	return s.calculate(ctx, trigger, rc, streak, user.Points)
}

func (s *rewardsService) CalculateRewardWithStreak(trigger models.Trigger, rc gamification.RewardContext, streakDays, currentPoints int) models.Reward {
	return s.calculate(context.Background(), trigger, rc, streakDays, currentPoints)
}

func (s *rewardsService) calculate(ctx context.Context, trigger models.Trigger, rc gamification.RewardContext, streakDays, currentPoints int) models.Reward {
	reward, err := gamification.Calculate(trigger, rc, streakDays, currentPoints)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("rewards_service").Warn("reward calculation failed: %v", err)
		return models.Reward{}
	}
	return reward
}

func (s *rewardsService) AwardReward(ctx context.Context, userID uuid.UUID, reward models.Reward) bool {
	log := logger.FromContext(ctx).WithPrefix("rewards_service")
	if reward.IsZero() {
		log.Debug("skipping empty reward: user_id=%s", userID)
		return false
	}
	log.Debug("awarding reward: user_id=%s, trigger=%s, points=%d, xp=%d", userID, reward.Trigger, reward.Points, reward.Experience)

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		err := repos.Rewards.Insert(ctx, &models.RewardGrant{
			UserID:             userID,
			Trigger:            reward.Trigger,
			Points:             reward.Points,
			Experience:         reward.Experience,
			Rewards:            reward.Rewards,
			MultipliersApplied: reward.MultipliersApplied,
			EventID:            reward.EventID,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return errAlreadyGranted
		}
		if err != nil {
			return err
		}
		if err := repos.Users.AddPoints(ctx, userID, reward.Points, reward.Experience); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFoundError("user", userID)
			}
			return err
		}
		for _, sub := range reward.Rewards {
			if sub.BonusPoints <= 0 {
				continue
			}
			if err := repos.Users.AddPoints(ctx, userID, sub.BonusPoints, 0); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errAlreadyGranted) {
		log.Info("reward already granted: user_id=%s, trigger=%s, event_id=%s", userID, reward.Trigger, reward.EventID)
		return true
	}
	if err != nil {
		log.Error("failed to award reward: user_id=%s, err=%v", userID, err)
		return false
	}

	s.loader.Invalidate(ctx, cache.UserStatsKey(userID), cache.PrefixLeaderboard)
	log.Info("reward awarded: user_id=%s, trigger=%s, points=%d, bonus=%d", userID, reward.Trigger, reward.Points, reward.Rewards.BonusPoints())
	return true
}

func (s *rewardsService) GetUserLevel(ctx context.Context, userID uuid.UUID) (*gamification.LevelInfo, error) {
	logger.FromContext(ctx).WithPrefix("rewards_service").Debug("getting level: user_id=%s", userID)

	user, err := requireUser(ctx, s.store.Repos(), userID)
	if err != nil {
		return nil, serviceErr(err)
	}
	info := gamification.Info(user.Points)
	return &info, nil
}

func (s *rewardsService) GetStreakInfo(ctx context.Context, userID uuid.UUID) (*gamification.StreakInfo, error) {
	log := logger.FromContext(ctx).WithPrefix("rewards_service")
	log.Debug("getting streak: user_id=%s", userID)

	repos := s.store.Repos()
	if _, err := requireUser(ctx, repos, userID); err != nil {
		return nil, serviceErr(err)
	}
	times, err := activityTimes(ctx, repos, userID, nil)
	if err != nil {
		log.Error("failed to load activity: %v", err)
		return nil, serviceErr(err)
	}
	info := gamification.NewStreakInfo(times, time.Now())
	return &info, nil
}

func (s *rewardsService) GetRewardHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardGrant, error) {
	log := logger.FromContext(ctx).WithPrefix("rewards_service")
	log.Debug("getting reward history: user_id=%s, limit=%d", userID, limit)

	grants, err := s.store.Repos().Rewards.List(ctx, userID, limit)
	if err != nil {
		log.Error("failed to list reward history: %v", err)
		return nil, serviceErr(err)
	}
	return grants, nil
}

func (s *rewardsService) TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	log := logger.FromContext(ctx).WithPrefix("rewards_service")
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		return nil, apperrors.NewValidationError("limit", "must be at most 100")
	}

	var entries []models.LeaderboardEntry
	err := s.loader.GetOrLoad(ctx, cache.LeaderboardKey(limit), 0, &entries, func(ctx context.Context) (any, error) {
		log.Debug("loading leaderboard: limit=%d", limit)
		users, err := s.store.Repos().Users.Top(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]models.LeaderboardEntry, 0, len(users))
		for i, u := range users {
			level := gamification.Level(u.Points)
			out = append(out, models.LeaderboardEntry{
				Rank:       i + 1,
				UserID:     u.ID,
				Username:   u.Username,
				Points:     u.Points,
				Level:      level,
				LevelTitle: gamification.LevelTitle(level),
			})
		}
		return out, nil
	})
	if err != nil {
		log.Error("failed to load leaderboard: %v", err)
		return nil, serviceErr(err)
	}
	return entries, nil
}
