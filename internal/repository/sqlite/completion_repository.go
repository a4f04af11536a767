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

type completionRepository struct {
	q repository.Querier
}

// NewCompletionRepository creates a new CompletionRepository implementation
func NewCompletionRepository(q repository.Querier) repository.CompletionRepository {
	return &completionRepository{q: q}
}

const completedLessonColumns = `id, user_id, lesson_id, course_id, completed_at, score, time_spent`

func scanCompletedLesson(row interface{ Scan(...any) error }) (*models.CompletedLesson, error) {
	var c models.CompletedLesson
	if err := row.Scan(&c.ID, &c.UserID, &c.LessonID, &c.CourseID, &c.CompletedAt, &c.Score, &c.TimeSpent); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *completionRepository) GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*models.CompletedLesson, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")

	c, err := scanCompletedLesson(r.q.QueryRowContext(ctx, `
SELECT `+completedLessonColumns+` FROM completed_lessons WHERE user_id = ? AND lesson_id = ?
`, userID, lessonID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get completed lesson: %v", err)
		return nil, dbErr("get completed lesson", err)
	}
	return c, nil
}

func (r *completionRepository) InsertLesson(ctx context.Context, c *models.CompletedLesson) error {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	log.Debug("inserting completed lesson: user_id=%s, lesson_id=%s", c.UserID, c.LessonID)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO completed_lessons (`+completedLessonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.UserID, c.LessonID, c.CourseID, c.CompletedAt, c.Score, c.TimeSpent)
	if err != nil {
		log.Error("failed to insert completed lesson: %v", err)
		return insertErr("insert completed lesson", err)
	}
	return nil
}

func (r *completionRepository) ListLessons(ctx context.Context, userID, courseID uuid.UUID) ([]models.CompletedLesson, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	log.Debug("listing completed lessons: user_id=%s, course_id=%s", userID, courseID)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+completedLessonColumns+`
FROM completed_lessons
WHERE user_id = ? AND course_id = ?
ORDER BY completed_at ASC
`, userID, courseID)
	if err != nil {
		log.Error("failed to list completed lessons: %v", err)
		return nil, dbErr("list completed lessons", err)
	}
	defer rows.Close()

	var out []models.CompletedLesson
	for rows.Next() {
		c, err := scanCompletedLesson(rows)
		if err != nil {
			log.Error("failed to scan completed lesson row: %v", err)
			return nil, dbErr("scan completed lesson", err)
		}
		out = append(out, *c)
	}
	return out, dbErr("list completed lessons", rows.Err())
}

func (r *completionRepository) CountLessons(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_lessons WHERE user_id = ?`, userID).Scan(&n); err != nil {
		logger.FromContext(ctx).WithPrefix("completion_repo").Error("failed to count completed lessons: %v", err)
		return 0, dbErr("count completed lessons", err)
	}
	return n, nil
}

// LessonCompletionTimes selects the raw column rather than an aggregate so
// the driver still parses it as DATETIME.
func (r *completionRepository) LessonCompletionTimes(ctx context.Context, userID uuid.UUID, since *time.Time) ([]time.Time, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")

	query := sqlBuilder.Select("completed_at").From("completed_lessons").Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("completed_at >= ?", since.UTC())
	}
	stmt, args, err := query.OrderBy("completed_at ASC").ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	return queryTimes(ctx, r.q, stmt, args...)
}

func queryTimes(ctx context.Context, q repository.Querier, stmt string, args ...any) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, dbErr("query activity times", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, dbErr("scan activity time", err)
		}
		out = append(out, t)
	}
	return out, dbErr("query activity times", rows.Err())
}

func (r *completionRepository) GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.CompletedCourse, error) {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")

	var c models.CompletedCourse
	err := r.q.QueryRowContext(ctx, `
SELECT id, user_id, course_id, completed_at, final_score, total_time_spent, completed_lessons_count,
       achievements_earned, certificate_id
FROM completed_courses
WHERE user_id = ? AND course_id = ?
`, userID, courseID).Scan(&c.ID, &c.UserID, &c.CourseID, &c.CompletedAt, &c.FinalScore, &c.TotalTimeSpent,
		&c.CompletedLessonsCount, &c.AchievementsEarned, &c.CertificateID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get completed course: %v", err)
		return nil, dbErr("get completed course", err)
	}
	return &c, nil
}

func (r *completionRepository) InsertCourse(ctx context.Context, c *models.CompletedCourse) error {
	log := logger.FromContext(ctx).WithPrefix("completion_repo")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	if c.AchievementsEarned == nil {
		c.AchievementsEarned = models.UUIDList{}
	}
	log.Debug("inserting completed course: user_id=%s, course_id=%s", c.UserID, c.CourseID)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO completed_courses (id, user_id, course_id, completed_at, final_score, total_time_spent,
                               completed_lessons_count, achievements_earned, certificate_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.UserID, c.CourseID, c.CompletedAt, c.FinalScore, c.TotalTimeSpent,
		c.CompletedLessonsCount, c.AchievementsEarned, c.CertificateID)
	if err != nil {
		log.Error("failed to insert completed course: %v", err)
		return insertErr("insert completed course", err)
	}
	return nil
}

func (r *completionRepository) CompletedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT course_id FROM completed_courses WHERE user_id = ? ORDER BY completed_at ASC`, userID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("completion_repo").Error("failed to list completed courses: %v", err)
		return nil, dbErr("list completed courses", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("scan completed course", err)
		}
		ids = append(ids, id)
	}
	return ids, dbErr("list completed courses", rows.Err())
}
