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
	"github.com/vytor/mathtermind/internal/weighting"
)

const (
	defaultActivityDays = 7
	maxActivityDays     = 365
)

// ProgressService tracks learner advancement through courses, lessons and content
type ProgressService interface {
	CreateCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error)
	CompleteLesson(ctx context.Context, userID, lessonID, courseID uuid.UUID, score *float64, timeSpent int) (*models.CompletedLesson, error)
	UpdateContentProgress(ctx context.Context, userID, contentID uuid.UUID, status models.ContentStatus, score *float64, timeSpent int, customData map[string]any) (*models.UserContentProgress, error)
	// CalculateWeightedCourseProgress reports failures through Details.Status.
	CalculateWeightedCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (float64, weighting.Details)
	SyncProgressData(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error)
	ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]models.CourseProgressSummary, error)
	GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	GetActivityByDay(ctx context.Context, userID uuid.UUID, days int) ([]models.DailyActivity, error)
	UpdateCurrentLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) error
	AddStudyTime(ctx context.Context, userID uuid.UUID, minutes int) error
}

type progressService struct {
	store      repository.Store
	loader     *cache.Loader
	dispatcher EventDispatcher
}

// NewProgressService creates a new ProgressService. dispatcher may be nil, in
// which case events wait for the next sweep.
func NewProgressService(store repository.Store, loader *cache.Loader, dispatcher EventDispatcher) ProgressService {
	return &progressService{store: store, loader: loader, dispatcher: dispatcher}
}

// ensureProgress returns the user's progress for courseID, creating it at the
// course's first lesson when missing.
func ensureProgress(ctx context.Context, repos repository.Repositories, userID, courseID uuid.UUID) (*models.Progress, error) {
	p, err := repos.Progress.Get(ctx, userID, courseID)
	if err != nil || p != nil {
		return p, err
	}

	lessons, err := repos.Courses.ListLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	p = &models.Progress{UserID: userID, CourseID: courseID}
	if len(lessons) > 0 {
		first := lessons[0].ID
		p.CurrentLessonID = &first
	}
	if err := repos.Progress.Insert(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return repos.Progress.Get(ctx, userID, courseID)
		}
		return nil, err
	}
	logger.FromContext(ctx).WithPrefix("progress_service").Debug("created progress: user_id=%s, course_id=%s", userID, courseID)
	return p, nil
}

// completeCourse marks p completed and records the completion fact and its
// event. It reports false when the course was already recorded.
func completeCourse(ctx context.Context, repos repository.Repositories, p *models.Progress, completed []models.CompletedLesson) (bool, error) {
	p.MarkCompleted()

	total := 0
	for _, l := range completed {
		total += l.TimeSpent
	}
	cc := &models.CompletedCourse{
		UserID:                p.UserID,
		CourseID:              p.CourseID,
		FinalScore:            averageScore(completed),
		TotalTimeSpent:        total,
		CompletedLessonsCount: len(completed),
	}
	if err := repos.Completions.InsertCourse(ctx, cc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	courseID := p.CourseID
	event := models.NewProgressEvent(p.UserID, models.EventCourseCompleted, models.EventPayload{
		CourseID:  &courseID,
		Score:     cc.FinalScore,
		TimeSpent: total,
	})
	if err := repos.Events.Insert(ctx, &event); err != nil {
		return false, err
	}
	logger.FromContext(ctx).WithPrefix("progress_service").Info("course completed: user_id=%s, course_id=%s", p.UserID, p.CourseID)
	return true, nil
}

// afterCommit runs the best-effort steps that follow a committed write.
func (s *progressService) afterCommit(ctx context.Context, userID uuid.UUID, dispatch bool) {
	s.loader.Invalidate(ctx, cache.UserStatsKey(userID))
	if !dispatch || s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.Dispatch(ctx); err != nil {
		logger.FromContext(ctx).WithPrefix("progress_service").Warn("event dispatch failed: user_id=%s, err=%v", userID, err)
	}
}

func (s *progressService) CreateCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("creating course progress: user_id=%s, course_id=%s", userID, courseID)

	var progress *models.Progress
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := requireUser(ctx, repos, userID); err != nil {
			return err
		}
		course, err := repos.Courses.Get(ctx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apperrors.NewNotFoundError("course", courseID)
		}
		progress, err = ensureProgress(ctx, repos, userID, courseID)
		return err
	})
	if err != nil {
		log.Error("failed to create course progress: %v", err)
		return nil, serviceErr(err)
	}
	return progress, nil
}

func (s *progressService) CompleteLesson(ctx context.Context, userID, lessonID, courseID uuid.UUID, score *float64, timeSpent int) (*models.CompletedLesson, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("completing lesson: user_id=%s, lesson_id=%s, course_id=%s", userID, lessonID, courseID)

	if err := validateScore(score); err != nil {
		return nil, err
	}
	if timeSpent < 0 {
		return nil, apperrors.NewValidationError("time_spent", "cannot be negative")
	}

	var result *models.CompletedLesson
	recorded := false
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Completions.GetLesson(ctx, userID, lessonID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		lesson, err := repos.Courses.GetLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return apperrors.NewNotFoundError("lesson", lessonID)
		}
		if lesson.CourseID != courseID {
			return apperrors.NewValidationError("lesson_id", "lesson does not belong to course")
		}
		if _, err := requireUser(ctx, repos, userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		cl := &models.CompletedLesson{
			UserID:      userID,
			LessonID:    lessonID,
			CourseID:    courseID,
			CompletedAt: now,
			Score:       score,
			TimeSpent:   timeSpent,
		}
		if err := repos.Completions.InsertLesson(ctx, cl); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result, err = repos.Completions.GetLesson(ctx, userID, lessonID)
				return err
			}
			return err
		}

		progress, err := ensureProgress(ctx, repos, userID, courseID)
		if err != nil {
			return err
		}
		lessons, err := repos.Courses.ListLessons(ctx, courseID)
		if err != nil {
			return err
		}
		completed, err := repos.Completions.ListLessons(ctx, userID, courseID)
		if err != nil {
			return err
		}

		progress.TimeSpent += timeSpent
		progress.TotalPointsEarned += lesson.PointsReward
		progress.LastAccessed = now
		progress.ProgressData.LastPosition = &models.Position{LessonID: lessonID}
		if !progress.IsCompleted && len(lessons) > 0 {
			progress.ProgressPercentage = float64(len(completed)) / float64(len(lessons)) * 100
		}
		for _, l := range lessons {
			if l.LessonOrder > lesson.LessonOrder {
				next := l.ID
				progress.CurrentLessonID = &next
				break
			}
		}

		event := models.NewProgressEvent(userID, models.EventLessonCompleted, models.EventPayload{
			CourseID:         &courseID,
			LessonID:         &lessonID,
			Score:            score,
			TimeSpent:        timeSpent,
			DifficultyLevel:  lesson.DifficultyLevel,
			CompletedQuickly: lesson.EstimatedTime > 0 && float64(timeSpent) <= float64(lesson.EstimatedTime)/2,
		})
		if err := repos.Events.Insert(ctx, &event); err != nil {
			return err
		}

		if !progress.IsCompleted && len(completed) >= len(lessons) {
			if _, err := completeCourse(ctx, repos, progress, completed); err != nil {
				return err
			}
		}
		if err := repos.Progress.Update(ctx, progress); err != nil {
			return err
		}

		result = cl
		recorded = true
		return nil
	})
	if err != nil {
		log.Error("failed to complete lesson: %v", err)
		return nil, serviceErr(err)
	}
	if !recorded {
		log.Debug("lesson already completed: user_id=%s, lesson_id=%s", userID, lessonID)
		return result, nil
	}

	log.Info("lesson completed: user_id=%s, lesson_id=%s", userID, lessonID)
	s.afterCommit(ctx, userID, true)
	return result, nil
}

func (s *progressService) UpdateContentProgress(ctx context.Context, userID, contentID uuid.UUID, status models.ContentStatus, score *float64, timeSpent int, customData map[string]any) (*models.UserContentProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("updating content progress: user_id=%s, content_id=%s, status=%s", userID, contentID, status)

	if _, err := models.ParseContentStatus(string(status)); err != nil {
		return nil, apperrors.NewValidationError("status", err.Error())
	}
	if err := validateScore(score); err != nil {
		return nil, err
	}
	if timeSpent < 0 {
		return nil, apperrors.NewValidationError("time_spent", "cannot be negative")
	}

	var result *models.UserContentProgress
	eventWritten := false
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		content, err := repos.Courses.GetContent(ctx, contentID)
		if err != nil {
			return err
		}
		if content == nil {
			return apperrors.NewNotFoundError("content", contentID)
		}
		lesson, err := repos.Courses.GetLesson(ctx, content.LessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return apperrors.NewNotFoundError("lesson", content.LessonID)
		}
		if _, err := requireUser(ctx, repos, userID); err != nil {
			return err
		}
		progress, err := ensureProgress(ctx, repos, userID, lesson.CourseID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		cp, err := repos.ContentProgress.Get(ctx, userID, contentID)
		if err != nil {
			return err
		}
		wasCompleted := cp != nil && cp.IsCompleted()
		if cp == nil {
			cp = &models.UserContentProgress{
				UserID:          userID,
				ContentID:       contentID,
				LessonID:        content.LessonID,
				ProgressID:      progress.ID,
				Status:          status,
				Score:           score,
				TimeSpent:       timeSpent,
				LastInteraction: now,
				CustomData:      models.JSONMap{}.Merge(customData),
			}
			if err := repos.ContentProgress.Insert(ctx, cp); err != nil {
				return err
			}
		} else {
			cp.Status = status
			if score != nil {
				cp.Score = score
			}
			cp.TimeSpent += timeSpent
			cp.CustomData = cp.CustomData.Merge(customData)
			cp.LastInteraction = now
			cp.ProgressID = progress.ID
			if err := repos.ContentProgress.Update(ctx, cp); err != nil {
				return err
			}
		}

		if cp.IsCompleted() {
			progress.ProgressData.AddCompletedContent(contentID)
		} else {
			progress.ProgressData.RemoveCompletedContent(contentID)
		}
		progress.ProgressData.LastPosition = &models.Position{LessonID: content.LessonID, ContentID: &contentID}
		progress.LastAccessed = now
		if err := repos.Progress.Update(ctx, progress); err != nil {
			return err
		}

		if cp.IsCompleted() && !wasCompleted {
			courseID, lessonID := lesson.CourseID, content.LessonID
			event := models.NewProgressEvent(userID, models.EventContentCompleted, models.EventPayload{
				CourseID:    &courseID,
				LessonID:    &lessonID,
				ContentID:   &contentID,
				ContentKind: content.Kind,
				Score:       cp.Score,
				TimeSpent:   cp.TimeSpent,
			})
			if err := repos.Events.Insert(ctx, &event); err != nil {
				return err
			}
			eventWritten = true
		}
		result = cp
		return nil
	})
	if err != nil {
		log.Error("failed to update content progress: %v", err)
		return nil, serviceErr(err)
	}

	s.afterCommit(ctx, userID, eventWritten)
	return result, nil
}

func (s *progressService) CalculateWeightedCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (float64, weighting.Details) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("calculating weighted progress: user_id=%s, course_id=%s", userID, courseID)

	fail := func(msg string, err error) (float64, weighting.Details) {
		log.Error("%s: %v", msg, err)
		return 0, weighting.Details{Status: weighting.StatusError, Message: msg + ": " + err.Error()}
	}

	repos := s.store.Repos()
	lessons, err := repos.Courses.ListLessons(ctx, courseID)
	if err != nil {
		return fail("failed to load lessons", err)
	}
	contents, err := repos.Courses.ListContents(ctx, courseID)
	if err != nil {
		return fail("failed to load content", err)
	}
	records, err := repos.ContentProgress.List(ctx, models.ContentProgressFilter{UserID: userID})
	if err != nil {
		return fail("failed to load content progress", err)
	}
	byContent := make(map[uuid.UUID]*models.UserContentProgress, len(records))
	for i := range records {
		byContent[records[i].ContentID] = &records[i]
	}

	pct, details := weighting.Compute(lessons, contents, byContent, time.Now())
	if details.Status != weighting.StatusSuccess {
		log.Debug("weighted progress not computed: status=%s, message=%s", details.Status, details.Message)
		return pct, details
	}

	err = s.store.InTx(ctx, func(repos repository.Repositories) error {
		progress, err := repos.Progress.Get(ctx, userID, courseID)
		if err != nil || progress == nil {
			return err
		}
		if !progress.IsCompleted {
			progress.ProgressPercentage = pct
		}
		progress.ProgressData.Weighted = details.Snapshot
		return repos.Progress.Update(ctx, progress)
	})
	if err != nil {
		_, failed := fail("failed to store weighted progress", err)
		return pct, failed
	}
	return pct, details
}

func (s *progressService) SyncProgressData(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("syncing progress: user_id=%s, course_id=%s", userID, courseID)

	synced, courseCompleted := false, false
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		progress, err := repos.Progress.Get(ctx, userID, courseID)
		if err != nil || progress == nil {
			return err
		}

		lessons, err := repos.Courses.ListLessons(ctx, courseID)
		if err != nil {
			return err
		}
		completed, err := repos.Completions.ListLessons(ctx, userID, courseID)
		if err != nil {
			return err
		}
		contents, err := repos.Courses.ListContents(ctx, courseID)
		if err != nil {
			return err
		}
		records, err := repos.ContentProgress.List(ctx, models.ContentProgressFilter{UserID: userID})
		if err != nil {
			return err
		}

		inCourse := make(map[uuid.UUID]bool, len(contents))
		for _, c := range contents {
			inCourse[c.ID] = true
		}

		lessonMinutes := 0
		for _, l := range completed {
			lessonMinutes += l.TimeSpent
		}
		var (
			contentSeconds int
			scoreSum       float64
			scored         int
			completedIDs   = models.UUIDList{}
		)
		for _, r := range records {
			if !inCourse[r.ContentID] {
				continue
			}
			contentSeconds += r.TimeSpent
			if r.Score != nil {
				scoreSum += *r.Score
				scored++
			}
			if r.IsCompleted() {
				completedIDs = append(completedIDs, r.ContentID)
			}
		}

		simple := 0.0
		if len(lessons) > 0 {
			simple = float64(len(completed)) / float64(len(lessons)) * 100
		}
		snapshot := &models.SyncSnapshot{
			CompletedLessons:  len(completed),
			TotalLessons:      len(lessons),
			CompletedContents: len(completedIDs),
			TotalContents:     len(contents),
			SimplePercentage:  simple,
			TotalTimeSeconds:  lessonMinutes*60 + contentSeconds,
			SyncedAt:          time.Now().UTC(),
		}
		if scored > 0 {
			avg := scoreSum / float64(scored)
			snapshot.AverageScore = &avg
		}

		progress.TimeSpent = lessonMinutes + contentSeconds/60
		progress.ProgressData.CompletedContentIDs = completedIDs
		progress.ProgressData.Sync = snapshot
		if !progress.IsCompleted {
			progress.ProgressPercentage = simple
			if len(lessons) > 0 && len(completed) >= len(lessons) {
				if courseCompleted, err = completeCourse(ctx, repos, progress, completed); err != nil {
					return err
				}
			}
		}
		if err := repos.Progress.Update(ctx, progress); err != nil {
			return err
		}
		synced = true
		return nil
	})
	if err != nil {
		log.Error("failed to sync progress: %v", err)
		return false, serviceErr(err)
	}
	if !synced {
		log.Debug("no progress to sync: user_id=%s, course_id=%s", userID, courseID)
		return false, nil
	}

	s.afterCommit(ctx, userID, courseCompleted)
	return true, nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error) {
	p, err := s.store.Repos().Progress.Get(ctx, userID, courseID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("progress_service").Error("failed to get progress: %v", err)
		return nil, serviceErr(err)
	}
	return p, nil
}

func (s *progressService) ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]models.CourseProgressSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("listing course progress: user_id=%s", userID)

	repos := s.store.Repos()
	records, err := repos.Progress.ListByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, serviceErr(err)
	}

	out := make([]models.CourseProgressSummary, 0, len(records))
	for _, p := range records {
		course, err := repos.Courses.Get(ctx, p.CourseID)
		if err != nil {
			return nil, serviceErr(err)
		}
		summary := models.CourseProgressSummary{
			CourseID:           p.CourseID,
			ProgressPercentage: p.ProgressPercentage,
			IsCompleted:        p.IsCompleted,
			TimeSpent:          p.FormattedTimeSpent(),
			LastAccessed:       p.LastAccessed,
		}
		if course != nil {
			summary.CourseName = course.Name
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *progressService) GetUserStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")

	var stats models.UserStats
	err := s.loader.GetOrLoad(ctx, cache.UserStatsKey(userID), 0, &stats, func(ctx context.Context) (any, error) {
		log.Debug("computing user stats: user_id=%s", userID)
		return s.computeStats(ctx, userID)
	})
	if err != nil {
		return nil, serviceErr(err)
	}
	return &stats, nil
}

func (s *progressService) computeStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	repos := s.store.Repos()
	user, err := requireUser(ctx, repos, userID)
	if err != nil {
		return nil, err
	}

	level := gamification.Level(user.Points)
	stats := &models.UserStats{
		UserID:            userID,
		TotalPoints:       user.Points,
		Experience:        user.Experience,
		Level:             level,
		LevelTitle:        gamification.LevelTitle(level),
		TotalStudyMinutes: user.TotalStudyTime,
	}

	records, err := repos.Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range records {
		if !p.IsCompleted {
			stats.CoursesInProgress++
		}
	}
	courses, err := repos.Completions.CompletedCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.CoursesCompleted = len(courses)

	if stats.LessonsCompleted, err = repos.Completions.CountLessons(ctx, userID); err != nil {
		return nil, err
	}
	filter := models.ContentProgressFilter{UserID: userID, Status: models.StatusCompleted}
	if stats.ContentCompleted, err = repos.ContentProgress.Count(ctx, filter); err != nil {
		return nil, err
	}
	scores, err := repos.ContentProgress.ScoreSummary(ctx, models.ContentProgressFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	stats.AverageScore = scores.Average

	times, err := activityTimes(ctx, repos, userID, nil)
	if err != nil {
		return nil, err
	}
	stats.CurrentStreak = gamification.CurrentStreak(times, time.Now())
	stats.LongestStreak = gamification.LongestStreak(times)
	return stats, nil
}

func (s *progressService) GetActivityByDay(ctx context.Context, userID uuid.UUID, days int) ([]models.DailyActivity, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	if days <= 0 {
		days = defaultActivityDays
	}
	if days > maxActivityDays {
		return nil, apperrors.NewValidationError("days", "must be at most 365")
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(days - 1))
	log.Debug("loading activity: user_id=%s, since=%s", userID, since.Format("2006-01-02"))

	repos := s.store.Repos()
	lessonTimes, err := repos.Completions.LessonCompletionTimes(ctx, userID, &since)
	if err != nil {
		return nil, serviceErr(err)
	}
	contentTimes, err := repos.ContentProgress.InteractionTimes(ctx, userID, &since)
	if err != nil {
		return nil, serviceErr(err)
	}

	out := make([]models.DailyActivity, days)
	for i := range out {
		out[i].Date = since.AddDate(0, 0, i)
	}
	bucket := func(t time.Time) *models.DailyActivity {
		i := int(t.UTC().Sub(since).Hours() / 24)
		if i < 0 || i >= days {
			return nil
		}
		return &out[i]
	}
	for _, t := range lessonTimes {
		if d := bucket(t); d != nil {
			d.LessonsCompleted++
		}
	}
	for _, t := range contentTimes {
		if d := bucket(t); d != nil {
			d.ContentInteractions++
		}
	}
	return out, nil
}

func (s *progressService) UpdateCurrentLesson(ctx context.Context, userID, courseID, lessonID uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("updating current lesson: user_id=%s, course_id=%s, lesson_id=%s", userID, courseID, lessonID)

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		lesson, err := repos.Courses.GetLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return apperrors.NewNotFoundError("lesson", lessonID)
		}
		if lesson.CourseID != courseID {
			return apperrors.NewValidationError("lesson_id", "lesson does not belong to course")
		}
		progress, err := repos.Progress.Get(ctx, userID, courseID)
		if err != nil {
			return err
		}
		if progress == nil {
			return apperrors.NewNotFoundError("progress", courseID)
		}
		progress.CurrentLessonID = &lessonID
		progress.ProgressData.LastPosition = &models.Position{LessonID: lessonID}
		progress.LastAccessed = time.Now().UTC()
		return repos.Progress.Update(ctx, progress)
	})
	if err != nil {
		log.Error("failed to update current lesson: %v", err)
		return serviceErr(err)
	}
	return nil
}

func (s *progressService) AddStudyTime(ctx context.Context, userID uuid.UUID, minutes int) error {
	log := logger.FromContext(ctx).WithPrefix("progress_service")
	log.Debug("adding study time: user_id=%s, minutes=%d", userID, minutes)

	if minutes < 0 {
		return apperrors.NewValidationError("minutes", "cannot be negative")
	}
	if err := s.store.Repos().Users.AddStudyTime(ctx, userID, minutes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError("user", userID)
		}
		log.Error("failed to add study time: %v", err)
		return serviceErr(err)
	}
	s.loader.Invalidate(ctx, cache.UserStatsKey(userID))
	return nil
}
