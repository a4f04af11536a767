package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

type courseRepository struct {
	q repository.Querier
}

// NewCourseRepository creates a new CourseRepository implementation
func NewCourseRepository(q repository.Querier) repository.CourseRepository {
	return &courseRepository{q: q}
}

func (r *courseRepository) Get(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	log.Debug("getting course: id=%s", id)

	var c models.Course
	err := r.q.QueryRowContext(ctx, `
SELECT id, name, description, subject, created_at FROM courses WHERE id = ?
`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Subject, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("course not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get course: %v", err)
		return nil, dbErr("get course", err)
	}
	return &c, nil
}

func (r *courseRepository) Insert(ctx context.Context, c *models.Course) error {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	log.Debug("inserting course: name=%s", c.Name)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO courses (id, name, description, subject, created_at) VALUES (?, ?, ?, ?, ?)
`, c.ID, c.Name, c.Description, c.Subject, c.CreatedAt)
	if err != nil {
		log.Error("failed to insert course: %v", err)
		return insertErr("insert course", err)
	}
	return nil
}

const lessonColumns = `id, course_id, title, lesson_order, difficulty_level, estimated_time, points_reward, created_at`

func scanLesson(row interface{ Scan(...any) error }) (*models.Lesson, error) {
	var l models.Lesson
	if err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.LessonOrder, &l.DifficultyLevel, &l.EstimatedTime, &l.PointsReward, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *courseRepository) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	log := logger.FromContext(ctx).WithPrefix("course_repo")

	l, err := scanLesson(r.q.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("lesson not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get lesson: %v", err)
		return nil, dbErr("get lesson", err)
	}
	return l, nil
}

func (r *courseRepository) InsertLesson(ctx context.Context, l *models.Lesson) error {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	log.Debug("inserting lesson: course_id=%s, order=%d", l.CourseID, l.LessonOrder)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO lessons (`+lessonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, l.ID, l.CourseID, l.Title, l.LessonOrder, l.DifficultyLevel, l.EstimatedTime, l.PointsReward, l.CreatedAt)
	if err != nil {
		log.Error("failed to insert lesson: %v", err)
		return insertErr("insert lesson", err)
	}
	return nil
}

func (r *courseRepository) ListLessons(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	log.Debug("listing lessons: course_id=%s", courseID)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+lessonColumns+`
FROM lessons
WHERE course_id = ?
ORDER BY lesson_order ASC, created_at ASC
`, courseID)
	if err != nil {
		log.Error("failed to list lessons: %v", err)
		return nil, dbErr("list lessons", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			log.Error("failed to scan lesson row: %v", err)
			return nil, dbErr("scan lesson", err)
		}
		lessons = append(lessons, *l)
	}
	log.Debug("found %d lessons", len(lessons))
	return lessons, dbErr("list lessons", rows.Err())
}

const contentColumns = `c.id, c.lesson_id, c.title, c.kind, c.content_order, c.metadata, c.created_at`

func scanContent(row interface{ Scan(...any) error }) (*models.Content, error) {
	var c models.Content
	if err := row.Scan(&c.ID, &c.LessonID, &c.Title, &c.Kind, &c.ContentOrder, &c.Metadata, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepository) GetContent(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	log := logger.FromContext(ctx).WithPrefix("course_repo")

	c, err := scanContent(r.q.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM contents c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("content not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get content: %v", err)
		return nil, dbErr("get content", err)
	}
	return c, nil
}

func (r *courseRepository) InsertContent(ctx context.Context, c *models.Content) error {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	log.Debug("inserting content: lesson_id=%s, kind=%s", c.LessonID, c.Kind)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO contents (id, lesson_id, title, kind, content_order, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.LessonID, c.Title, c.Kind, c.ContentOrder, c.Metadata, c.CreatedAt)
	if err != nil {
		log.Error("failed to insert content: %v", err)
		return insertErr("insert content", err)
	}
	return nil
}

func (r *courseRepository) ListContents(ctx context.Context, courseID uuid.UUID) ([]models.Content, error) {
	log := logger.FromContext(ctx).WithPrefix("course_repo")
	log.Debug("listing contents: course_id=%s", courseID)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+contentColumns+`
FROM contents c
JOIN lessons l ON l.id = c.lesson_id
WHERE l.course_id = ?
ORDER BY l.lesson_order ASC, c.content_order ASC
`, courseID)
	if err != nil {
		log.Error("failed to list contents: %v", err)
		return nil, dbErr("list contents", err)
	}
	defer rows.Close()

	var contents []models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			log.Error("failed to scan content row: %v", err)
			return nil, dbErr("scan content", err)
		}
		contents = append(contents, *c)
	}
	log.Debug("found %d contents", len(contents))
	return contents, dbErr("list contents", rows.Err())
}

// CourseForContent returns uuid.Nil when the content does not exist.
func (r *courseRepository) CourseForContent(ctx context.Context, contentID uuid.UUID) (uuid.UUID, error) {
	var courseID uuid.UUID
	err := r.q.QueryRowContext(ctx, `
SELECT l.course_id FROM contents c JOIN lessons l ON l.id = c.lesson_id WHERE c.id = ?
`, contentID).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("course_repo").Error("failed to resolve course for content: %v", err)
		return uuid.Nil, dbErr("course for content", err)
	}
	return courseID, nil
}
