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

type progressRepository struct {
	q repository.Querier
}

// NewProgressRepository creates a new ProgressRepository implementation
func NewProgressRepository(q repository.Querier) repository.ProgressRepository {
	return &progressRepository{q: q}
}

const progressColumns = `id, user_id, course_id, current_lesson_id, total_points_earned, time_spent,
       progress_percentage, progress_data, last_accessed, is_completed, created_at`

func scanProgress(row interface{ Scan(...any) error }) (*models.Progress, error) {
	var p models.Progress
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.CurrentLessonID, &p.TotalPointsEarned, &p.TimeSpent,
		&p.ProgressPercentage, &p.ProgressData, &p.LastAccessed, &p.IsCompleted, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepository) get(ctx context.Context, where string, args ...any) (*models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	p, err := scanProgress(r.q.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM progress WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get progress: %v", err)
		return nil, dbErr("get progress", err)
	}
	return p, nil
}

func (r *progressRepository) Get(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error) {
	logger.FromContext(ctx).WithPrefix("progress_repo").Debug("getting progress: user_id=%s, course_id=%s", userID, courseID)
	return r.get(ctx, `user_id = ? AND course_id = ?`, userID, courseID)
}

func (r *progressRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Progress, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *progressRepository) Insert(ctx context.Context, p *models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.LastAccessed.IsZero() {
		p.LastAccessed = now
	}
	log.Debug("inserting progress: user_id=%s, course_id=%s", p.UserID, p.CourseID)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO progress (`+progressColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.ID, p.UserID, p.CourseID, p.CurrentLessonID, p.TotalPointsEarned, p.TimeSpent,
		p.ProgressPercentage, p.ProgressData, p.LastAccessed, p.IsCompleted, p.CreatedAt)
	if err != nil {
		log.Error("failed to insert progress: %v", err)
		return insertErr("insert progress", err)
	}
	return nil
}

func (r *progressRepository) Update(ctx context.Context, p *models.Progress) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("updating progress: id=%s, percentage=%.2f, completed=%t", p.ID, p.ProgressPercentage, p.IsCompleted)

	res, err := r.q.ExecContext(ctx, `
UPDATE progress
SET current_lesson_id = ?, total_points_earned = ?, time_spent = ?, progress_percentage = ?,
    progress_data = ?, last_accessed = ?, is_completed = ?
WHERE id = ?
`, p.CurrentLessonID, p.TotalPointsEarned, p.TimeSpent, p.ProgressPercentage,
		p.ProgressData, p.LastAccessed, p.IsCompleted, p.ID)
	if err != nil {
		log.Error("failed to update progress: %v", err)
		return dbErr("update progress", err)
	}
	return expectOne("update progress", res)
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Progress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("listing progress: user_id=%s", userID)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+progressColumns+`
FROM progress
WHERE user_id = ?
ORDER BY last_accessed DESC
`, userID)
	if err != nil {
		log.Error("failed to list progress: %v", err)
		return nil, dbErr("list progress", err)
	}
	defer rows.Close()

	var out []models.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			log.Error("failed to scan progress row: %v", err)
			return nil, dbErr("scan progress", err)
		}
		out = append(out, *p)
	}
	return out, dbErr("list progress", rows.Err())
}
