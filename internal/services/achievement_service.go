package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/cache"
	"github.com/vytor/mathtermind/internal/criteria"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/gamification"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

const defaultRecommendations = 5

// SocialActivity is community activity reported by the caller.
type SocialActivity struct {
	HelpGiven          int `json:"help_given"`
	ParticipationScore int `json:"participation_score"`
}

// Recommendation is an un-earned achievement ranked for the learner.
type Recommendation struct {
	Achievement models.Achievement `json:"achievement"`
	Progress    criteria.Estimate  `json:"progress"`
	Priority    float64            `json:"priority"`
}

// AchievementService evaluates and awards achievements
type AchievementService interface {
	HasAchievement(ctx context.Context, userID, achievementID uuid.UUID) (bool, error)
	// AwardAchievement returns nil, nil when the achievement is unknown or already held.
	AwardAchievement(ctx context.Context, userID, achievementID uuid.UUID, snapshot *models.AwardSnapshot) (*models.UserAchievement, error)
	CheckProgressAchievements(ctx context.Context, userID, progressID uuid.UUID) ([]models.UserAchievement, error)
	CheckUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error)
	CheckStreakAchievements(ctx context.Context, userID uuid.UUID, currentStreak int) ([]models.UserAchievement, error)
	CheckMasteryAchievements(ctx context.Context, userID uuid.UUID, subject string, level float64) ([]models.UserAchievement, error)
	CheckSocialAchievements(ctx context.Context, userID uuid.UUID, activity SocialActivity) ([]models.UserAchievement, error)
	CheckAllAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error)
	GetAchievementProgress(ctx context.Context, userID, achievementID uuid.UUID) (*criteria.Estimate, error)
	GetRecommendedAchievements(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error)
	ListAchievements(ctx context.Context, filter models.AchievementFilter) ([]models.Achievement, error)
	ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievementDetail, error)
	SeedCatalog(ctx context.Context, catalog []models.Achievement) (int, error)
}

type achievementService struct {
	store  repository.Store
	loader *cache.Loader
}

// NewAchievementService creates a new AchievementService
func NewAchievementService(store repository.Store, loader *cache.Loader) AchievementService {
	return &achievementService{store: store, loader: loader}
}

func (s *achievementService) HasAchievement(ctx context.Context, userID, achievementID uuid.UUID) (bool, error) {
	held, err := s.store.Repos().Achievements.HasUserAchievement(ctx, userID, achievementID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("achievement_service").Error("failed to check achievement: %v", err)
		return false, serviceErr(err)
	}
	return held, nil
}

func (s *achievementService) AwardAchievement(ctx context.Context, userID, achievementID uuid.UUID, snapshot *models.AwardSnapshot) (*models.UserAchievement, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_service")
	log.Debug("awarding achievement: user_id=%s, achievement_id=%s", userID, achievementID)

	var awarded *models.UserAchievement
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		achievement, err := repos.Achievements.Get(ctx, achievementID)
		if err != nil {
			return err
		}
		if achievement == nil {
			log.Warn("achievement not found: id=%s", achievementID)
			return nil
		}
		user, err := requireUser(ctx, repos, userID)
		if err != nil {
			return err
		}
		held, err := repos.Achievements.HasUserAchievement(ctx, userID, achievementID)
		if err != nil || held {
			return err
		}

		data := models.AwardSnapshot{CriteriaKind: string(achievement.Criteria.Kind()), UserPoints: user.Points}
		if snapshot != nil {
			data = *snapshot
		}
		ua := &models.UserAchievement{UserID: userID, AchievementID: achievementID, ProgressData: data}
		if err := repos.Achievements.InsertUserAchievement(ctx, ua); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.Debug("achievement awarded concurrently: user_id=%s, achievement_id=%s", userID, achievementID)
				return nil
			}
			return err
		}
		if achievement.Points > 0 {
			if err := repos.Users.AddPoints(ctx, userID, achievement.Points, 0); err != nil {
				return err
			}
		}
		awarded = ua
		return nil
	})
	if err != nil {
		log.Error("failed to award achievement: %v", err)
		return nil, serviceErr(err)
	}
	if awarded != nil {
		s.loader.Invalidate(ctx, cache.UserStatsKey(userID), cache.PrefixLeaderboard)
		log.Info("achievement awarded: user_id=%s, achievement_id=%s", userID, achievementID)
	}
	return awarded, nil
}

// buildState gathers a fresh evaluation state for user.
func (s *achievementService) buildState(ctx context.Context, repos repository.Repositories, user *models.User) (criteria.State, error) {
	now := time.Now().UTC()
	state := criteria.State{
		Points:       user.Points,
		StudyMinutes: user.TotalStudyTime,
	}
	if age := now.Sub(user.CreatedAt); age > 0 {
		state.AccountAgeDays = int(age.Hours() / 24)
	}

	var err error
	if state.LessonsCompleted, err = repos.Completions.CountLessons(ctx, user.ID); err != nil {
		return state, err
	}
	courseIDs, err := repos.Completions.CompletedCourseIDs(ctx, user.ID)
	if err != nil {
		return state, err
	}
	state.CoursesCompleted = len(courseIDs)
	state.CompletedCourses = make(map[uuid.UUID]bool, len(courseIDs))
	for _, id := range courseIDs {
		state.CompletedCourses[id] = true
	}

	if state.ContentViewed, err = repos.ContentProgress.Count(ctx, models.ContentProgressFilter{UserID: user.ID}); err != nil {
		return state, err
	}
	completed := models.ContentProgressFilter{UserID: user.ID, Status: models.StatusCompleted}
	if state.TasksCompleted, err = repos.ContentProgress.Count(ctx, completed); err != nil {
		return state, err
	}
	perfect := 100.0
	completed.MinScore = &perfect
	if state.PerfectScores, err = repos.ContentProgress.Count(ctx, completed); err != nil {
		return state, err
	}

	times, err := activityTimes(ctx, repos, user.ID, nil)
	if err != nil {
		return state, err
	}
	state.CurrentStreak = gamification.CurrentStreak(times, now)
	return state, nil
}

// check awards every un-held achievement in category (all categories when
// empty) whose criteria state satisfies.
func (s *achievementService) check(ctx context.Context, userID uuid.UUID, category string, decorate func(*criteria.State)) ([]models.UserAchievement, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_service").WithField("category", category)
	repos := s.store.Repos()

	user, err := requireUser(ctx, repos, userID)
	if err != nil {
		return nil, serviceErr(err)
	}
	state, err := s.buildState(ctx, repos, user)
	if err != nil {
		log.Error("failed to build achievement state: %v", err)
		return nil, serviceErr(err)
	}
	if decorate != nil {
		decorate(&state)
	}

	catalog, err := repos.Achievements.List(ctx, models.AchievementFilter{Category: category, IncludeHidden: true})
	if err != nil {
		log.Error("failed to list achievements: %v", err)
		return nil, serviceErr(err)
	}
	held, err := repos.Achievements.HeldIDs(ctx, userID)
	if err != nil {
		log.Error("failed to list held achievements: %v", err)
		return nil, serviceErr(err)
	}

	var awarded []models.UserAchievement
	for _, a := range catalog {
		if held[a.ID] || !criteria.Met(a.Criteria.Criteria, state) {
			continue
		}
		current, required, _ := criteria.Measure(a.Criteria.Criteria, state)
		snapshot := &models.AwardSnapshot{
			CriteriaKind: string(a.Criteria.Kind()),
			Current:      current,
			Required:     required,
			UserPoints:   state.Points,
			Source:       category,
		}
		ua, err := s.AwardAchievement(ctx, userID, a.ID, snapshot)
		if err != nil {
			return awarded, err
		}
		if ua != nil {
			awarded = append(awarded, *ua)
			state.Points += a.Points
		}
	}
	log.Debug("achievement check finished: user_id=%s, evaluated=%d, awarded=%d", userID, len(catalog), len(awarded))
	return awarded, nil
}

func (s *achievementService) CheckProgressAchievements(ctx context.Context, userID, progressID uuid.UUID) ([]models.UserAchievement, error) {
	progress, err := s.store.Repos().Progress.GetByID(ctx, progressID)
	if err != nil {
		return nil, serviceErr(err)
	}
	if progress == nil || progress.UserID != userID {
		return nil, apperrors.NewNotFoundError("progress", progressID)
	}
	return s.check(ctx, userID, models.CategoryProgress, func(st *criteria.State) {
		st.Progress = &criteria.ProgressContext{
			CourseID:     progress.CourseID,
			Percentage:   progress.ProgressPercentage,
			PointsEarned: progress.TotalPointsEarned,
			IsCompleted:  progress.IsCompleted,
		}
	})
}

func (s *achievementService) CheckUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error) {
	return s.check(ctx, userID, models.CategoryUser, nil)
}

func (s *achievementService) CheckStreakAchievements(ctx context.Context, userID uuid.UUID, currentStreak int) ([]models.UserAchievement, error) {
	if currentStreak < 0 {
		return nil, apperrors.NewValidationError("current_streak", "cannot be negative")
	}
	return s.check(ctx, userID, models.CategoryStreak, func(st *criteria.State) {
		st.CurrentStreak = currentStreak
	})
}

func (s *achievementService) CheckMasteryAchievements(ctx context.Context, userID uuid.UUID, subject string, level float64) ([]models.UserAchievement, error) {
	if subject == "" {
		return nil, apperrors.NewValidationError("subject", "cannot be empty")
	}
	return s.check(ctx, userID, models.CategoryMastery, func(st *criteria.State) {
		st.Mastery = &criteria.MasteryContext{Subject: subject, Level: level}
	})
}

func (s *achievementService) CheckSocialAchievements(ctx context.Context, userID uuid.UUID, activity SocialActivity) ([]models.UserAchievement, error) {
	return s.check(ctx, userID, models.CategorySocial, func(st *criteria.State) {
		st.Social = &criteria.SocialContext{HelpGiven: activity.HelpGiven, ParticipationScore: activity.ParticipationScore}
	})
}

func (s *achievementService) CheckAllAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievement, error) {
	return s.check(ctx, userID, "", nil)
}

func (s *achievementService) GetAchievementProgress(ctx context.Context, userID, achievementID uuid.UUID) (*criteria.Estimate, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_service")
	repos := s.store.Repos()

	achievement, err := repos.Achievements.Get(ctx, achievementID)
	if err != nil {
		return nil, serviceErr(err)
	}
	if achievement == nil {
		return nil, apperrors.NewNotFoundError("achievement", achievementID)
	}
	user, err := requireUser(ctx, repos, userID)
	if err != nil {
		return nil, serviceErr(err)
	}
	state, err := s.buildState(ctx, repos, user)
	if err != nil {
		log.Error("failed to build achievement state: %v", err)
		return nil, serviceErr(err)
	}
	est := criteria.EstimateProgress(achievement.Criteria.Criteria, state)
	return &est, nil
}

func (s *achievementService) GetRecommendedAchievements(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_service")
	if limit <= 0 {
		limit = defaultRecommendations
	}
	repos := s.store.Repos()

	user, err := requireUser(ctx, repos, userID)
	if err != nil {
		return nil, serviceErr(err)
	}
	state, err := s.buildState(ctx, repos, user)
	if err != nil {
		log.Error("failed to build achievement state: %v", err)
		return nil, serviceErr(err)
	}
	catalog, err := repos.Achievements.List(ctx, models.AchievementFilter{})
	if err != nil {
		return nil, serviceErr(err)
	}
	held, err := repos.Achievements.HeldIDs(ctx, userID)
	if err != nil {
		return nil, serviceErr(err)
	}

	recs := make([]Recommendation, 0, len(catalog))
	for _, a := range catalog {
		if held[a.ID] {
			continue
		}
		est := criteria.EstimateProgress(a.Criteria.Criteria, state)
		recs = append(recs, Recommendation{
			Achievement: a,
			Progress:    est,
			Priority:    criteria.Priority(a.Points, a.Category, est),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].Progress.Percentage > recs[j].Progress.Percentage
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *achievementService) ListAchievements(ctx context.Context, filter models.AchievementFilter) ([]models.Achievement, error) {
	logger.FromContext(ctx).WithPrefix("achievement_service").Debug("listing achievements: category=%s", filter.Category)
	list, err := s.store.Repos().Achievements.List(ctx, filter)
	if err != nil {
		return nil, serviceErr(err)
	}
	return list, nil
}

func (s *achievementService) ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievementDetail, error) {
	list, err := s.store.Repos().Achievements.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, serviceErr(err)
	}
	return list, nil
}

// SeedCatalog inserts the catalog entries whose names are not yet stored.
func (s *achievementService) SeedCatalog(ctx context.Context, catalog []models.Achievement) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_service")
	inserted := 0
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		for _, entry := range catalog {
			existing, err := repos.Achievements.GetByName(ctx, entry.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			a := entry
			a.ID = uuid.Nil
			if err := repos.Achievements.Insert(ctx, &a); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		log.Error("failed to seed achievements: %v", err)
		return 0, serviceErr(err)
	}
	log.Info("achievement catalog seeded: inserted=%d, total=%d", inserted, len(catalog))
	return inserted, nil
}
