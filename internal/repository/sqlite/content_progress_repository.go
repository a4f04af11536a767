package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

type contentProgressRepository struct {
	q repository.Querier
}

// NewContentProgressRepository creates a new ContentProgressRepository implementation
func NewContentProgressRepository(q repository.Querier) repository.ContentProgressRepository {
	return &contentProgressRepository{q: q}
}

var contentProgressColumns = []string{
	"id", "user_id", "content_id", "lesson_id", "progress_id", "status", "score",
	"time_spent", "last_interaction", "custom_data",
}

func scanContentProgress(row interface{ Scan(...any) error }) (*models.UserContentProgress, error) {
	var p models.UserContentProgress
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.ContentID, &p.LessonID, &p.ProgressID, &status, &p.Score,
		&p.TimeSpent, &p.LastInteraction, &p.CustomData)
	if err != nil {
		return nil, err
	}
	p.Status = models.ContentStatus(status)
	if p.CustomData == nil {
		p.CustomData = models.JSONMap{}
	}
	return &p, nil
}

func applyContentProgressFilter(q squirrel.SelectBuilder, filter models.ContentProgressFilter) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"user_id": filter.UserID})
	if filter.LessonID != nil {
		q = q.Where(squirrel.Eq{"lesson_id": *filter.LessonID})
	}
	if filter.ProgressID != nil {
		q = q.Where(squirrel.Eq{"progress_id": *filter.ProgressID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.MinScore != nil {
		q = q.Where(squirrel.GtOrEq{"score": *filter.MinScore})
	}
	return q
}

func (r *contentProgressRepository) Get(ctx context.Context, userID, contentID uuid.UUID) (*models.UserContentProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")

	stmt, args, err := sqlBuilder.Select(contentProgressColumns...).
		From("user_content_progress").
		Where(squirrel.Eq{"user_id": userID, "content_id": contentID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	p, err := scanContentProgress(r.q.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get content progress: %v", err)
		return nil, dbErr("get content progress", err)
	}
	return p, nil
}

func (r *contentProgressRepository) Insert(ctx context.Context, p *models.UserContentProgress) error {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.LastInteraction.IsZero() {
		p.LastInteraction = time.Now().UTC()
	}
	if p.CustomData == nil {
		p.CustomData = models.JSONMap{}
	}
	log.Debug("inserting content progress: user_id=%s, content_id=%s, status=%s", p.UserID, p.ContentID, p.Status)

	stmt, args, err := sqlBuilder.Insert("user_content_progress").
		Columns(contentProgressColumns...).
		Values(p.ID, p.UserID, p.ContentID, p.LessonID, p.ProgressID, string(p.Status), p.Score,
			p.TimeSpent, p.LastInteraction, p.CustomData).
		ToSql()
	if err != nil {
		log.Error("failed to build insert: %v", err)
		return err
	}
	if _, err := r.q.ExecContext(ctx, stmt, args...); err != nil {
		log.Error("failed to insert content progress: %v", err)
		return insertErr("insert content progress", err)
	}
	return nil
}

func (r *contentProgressRepository) Update(ctx context.Context, p *models.UserContentProgress) error {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")
	log.Debug("updating content progress: id=%s, status=%s", p.ID, p.Status)

	res, err := r.q.ExecContext(ctx, `
UPDATE user_content_progress
SET status = ?, score = ?, time_spent = ?, last_interaction = ?, custom_data = ?, progress_id = ?
WHERE id = ?
`, string(p.Status), p.Score, p.TimeSpent, p.LastInteraction, p.CustomData, p.ProgressID, p.ID)
	if err != nil {
		log.Error("failed to update content progress: %v", err)
		return dbErr("update content progress", err)
	}
	return expectOne("update content progress", res)
}

func (r *contentProgressRepository) List(ctx context.Context, filter models.ContentProgressFilter) ([]models.UserContentProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")
	log.Debug("listing content progress: user_id=%s, status=%s", filter.UserID, filter.Status)

	query := applyContentProgressFilter(sqlBuilder.Select(contentProgressColumns...).From("user_content_progress"), filter).
		OrderBy("last_interaction ASC")
	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list content progress: %v", err)
		return nil, dbErr("list content progress", err)
	}
	defer rows.Close()

	var out []models.UserContentProgress
	for rows.Next() {
		p, err := scanContentProgress(rows)
		if err != nil {
			log.Error("failed to scan content progress row: %v", err)
			return nil, dbErr("scan content progress", err)
		}
		out = append(out, *p)
	}
	return out, dbErr("list content progress", rows.Err())
}

func (r *contentProgressRepository) Count(ctx context.Context, filter models.ContentProgressFilter) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")

	stmt, args, err := applyContentProgressFilter(sqlBuilder.Select("COUNT(*)").From("user_content_progress"), filter).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}
	var n int
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		log.Error("failed to count content progress: %v", err)
		return 0, dbErr("count content progress", err)
	}
	return n, nil
}

// ScoreSummary averages the non-null scores matching filter.
func (r *contentProgressRepository) ScoreSummary(ctx context.Context, filter models.ContentProgressFilter) (models.ScoreSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("content_progress_repo")

	query := applyContentProgressFilter(sqlBuilder.Select("COUNT(score)", "AVG(score)").From("user_content_progress"), filter).
		Where("score IS NOT NULL")
	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return models.ScoreSummary{}, err
	}

	var summary models.ScoreSummary
	var avg sql.NullFloat64
	if err := r.q.QueryRowContext(ctx, stmt, args...).Scan(&summary.Count, &avg); err != nil {
		log.Error("failed to summarise scores: %v", err)
		return models.ScoreSummary{}, dbErr("score summary", err)
	}
	if avg.Valid {
		summary.Average = &avg.Float64
	}
	return summary, nil
}

func (r *contentProgressRepository) InteractionTimes(ctx context.Context, userID uuid.UUID, since *time.Time) ([]time.Time, error) {
	query := sqlBuilder.Select("last_interaction").From("user_content_progress").Where(squirrel.Eq{"user_id": userID})
	if since != nil {
		query = query.Where(squirrel.GtOrEq{"last_interaction": since.UTC()})
	}
	stmt, args, err := query.OrderBy("last_interaction ASC").ToSql()
	if err != nil {
		logger.FromContext(ctx).WithPrefix("content_progress_repo").Error("failed to build query: %v", err)
		return nil, err
	}
	return queryTimes(ctx, r.q, stmt, args...)
}
