package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/models"
)

var (
	// ErrNotFound is returned by updates that matched no row. Reads of a
	// missing row return nil, nil instead.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a UNIQUE constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepository handles learner accounts and their point balances
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	AddPoints(ctx context.Context, id uuid.UUID, points, experience int) error
	AddStudyTime(ctx context.Context, id uuid.UUID, minutes int) error
	Top(ctx context.Context, limit int) ([]models.User, error)
}

// CourseRepository handles the course catalog: courses, lessons and content
type CourseRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Course, error)
	Insert(ctx context.Context, course *models.Course) error
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	InsertLesson(ctx context.Context, lesson *models.Lesson) error
	ListLessons(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error)
	GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error)
	InsertContent(ctx context.Context, content *models.Content) error
	ListContents(ctx context.Context, courseID uuid.UUID) ([]models.Content, error)
	CourseForContent(ctx context.Context, contentID uuid.UUID) (uuid.UUID, error)
}

// ProgressRepository handles per-course progress records
type ProgressRepository interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Progress, error)
	Insert(ctx context.Context, p *models.Progress) error
	Update(ctx context.Context, p *models.Progress) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Progress, error)
}

// CompletionRepository handles the append-only lesson and course completion facts
type CompletionRepository interface {
	GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*models.CompletedLesson, error)
	InsertLesson(ctx context.Context, c *models.CompletedLesson) error
	ListLessons(ctx context.Context, userID, courseID uuid.UUID) ([]models.CompletedLesson, error)
	CountLessons(ctx context.Context, userID uuid.UUID) (int, error)
	LessonCompletionTimes(ctx context.Context, userID uuid.UUID, since *time.Time) ([]time.Time, error)
	GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.CompletedCourse, error)
	InsertCourse(ctx context.Context, c *models.CompletedCourse) error
	CompletedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ContentProgressRepository handles per-content interaction state
type ContentProgressRepository interface {
	Get(ctx context.Context, userID, contentID uuid.UUID) (*models.UserContentProgress, error)
	Insert(ctx context.Context, p *models.UserContentProgress) error
	Update(ctx context.Context, p *models.UserContentProgress) error
	List(ctx context.Context, filter models.ContentProgressFilter) ([]models.UserContentProgress, error)
	Count(ctx context.Context, filter models.ContentProgressFilter) (int, error)
	ScoreSummary(ctx context.Context, filter models.ContentProgressFilter) (models.ScoreSummary, error)
	InteractionTimes(ctx context.Context, userID uuid.UUID, since *time.Time) ([]time.Time, error)
}

// AchievementRepository handles the achievement catalog and awards
type AchievementRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Achievement, error)
	GetByName(ctx context.Context, name string) (*models.Achievement, error)
	List(ctx context.Context, filter models.AchievementFilter) ([]models.Achievement, error)
	Insert(ctx context.Context, a *models.Achievement) error
	HasUserAchievement(ctx context.Context, userID, achievementID uuid.UUID) (bool, error)
	HeldIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error
	ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievementDetail, error)
}

// EventRepository handles the completion outbox
type EventRepository interface {
	Insert(ctx context.Context, e *models.ProgressEvent) error
	Pending(ctx context.Context, maxAttempts, limit int) ([]models.ProgressEvent, error)
	Update(ctx context.Context, e *models.ProgressEvent) error
}

// RewardRepository handles the reward grant history
type RewardRepository interface {
	Insert(ctx context.Context, g *models.RewardGrant) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardGrant, error)
}

// Repositories groups every repository bound to one Querier.
type Repositories struct {
	Users           UserRepository
	Courses         CourseRepository
	Progress        ProgressRepository
	Completions     CompletionRepository
	ContentProgress ContentProgressRepository
	Achievements    AchievementRepository
	Events          EventRepository
	Rewards         RewardRepository
}

// Store hands out repositories over the database or over a transaction.
type Store interface {
	Repos() Repositories
	// InTx runs fn with repositories bound to one transaction, committing on
	// success and rolling back on error or panic.
	InTx(ctx context.Context, fn func(Repositories) error) error
}
