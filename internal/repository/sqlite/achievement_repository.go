package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

type achievementRepository struct {
	q repository.Querier
}

// NewAchievementRepository creates a new AchievementRepository implementation
func NewAchievementRepository(q repository.Querier) repository.AchievementRepository {
	return &achievementRepository{q: q}
}

var achievementColumns = []string{
	"id", "name", "description", "criteria", "category", "icon", "points", "is_hidden", "tier", "created_at",
}

func scanAchievement(row interface{ Scan(...any) error }) (*models.Achievement, error) {
	var a models.Achievement
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Criteria, &a.Category, &a.Icon, &a.Points, &a.IsHidden, &a.Tier, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *achievementRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Achievement, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")

	stmt, args, err := sqlBuilder.Select(achievementColumns...).From("achievements").Where(where).ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	a, err := scanAchievement(r.q.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get achievement: %v", err)
		return nil, dbErr("get achievement", err)
	}
	return a, nil
}

func (r *achievementRepository) Get(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *achievementRepository) GetByName(ctx context.Context, name string) (*models.Achievement, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

// List skips rows whose stored criteria no longer parse.
func (r *achievementRepository) List(ctx context.Context, filter models.AchievementFilter) ([]models.Achievement, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("listing achievements: category=%s, include_hidden=%t", filter.Category, filter.IncludeHidden)

	query := sqlBuilder.Select(achievementColumns...).From("achievements")
	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	if !filter.IncludeHidden {
		query = query.Where(squirrel.Eq{"is_hidden": false})
	}
	query = query.OrderBy("category ASC", "points ASC", "name ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list achievements: %v", err)
		return nil, dbErr("list achievements", err)
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			log.Warn("skipping achievement with unreadable row: %v", err)
			continue
		}
		out = append(out, *a)
	}
	log.Debug("found %d achievements", len(out))
	return out, dbErr("list achievements", rows.Err())
}

func (r *achievementRepository) Insert(ctx context.Context, a *models.Achievement) error {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Criteria.Criteria == nil {
		return fmt.Errorf("achievement %q has no criteria", a.Name)
	}
	log.Debug("inserting achievement: name=%s, category=%s", a.Name, a.Category)

	stmt, args, err := sqlBuilder.Insert("achievements").
		Columns(achievementColumns...).
		Values(a.ID, a.Name, a.Description, a.Criteria, a.Category, a.Icon, a.Points, a.IsHidden, a.Tier, a.CreatedAt).
		ToSql()
	if err != nil {
		log.Error("failed to build insert: %v", err)
		return err
	}
	if _, err := r.q.ExecContext(ctx, stmt, args...); err != nil {
		log.Error("failed to insert achievement: %v", err)
		return insertErr("insert achievement", err)
	}
	return nil
}

func (r *achievementRepository) HasUserAchievement(ctx context.Context, userID, achievementID uuid.UUID) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
SELECT COUNT(*) FROM user_achievements WHERE user_id = ? AND achievement_id = ?
`, userID, achievementID).Scan(&n)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("achievement_repo").Error("failed to check user achievement: %v", err)
		return false, dbErr("check user achievement", err)
	}
	return n > 0, nil
}

func (r *achievementRepository) HeldIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = ?`, userID)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("achievement_repo").Error("failed to list held achievements: %v", err)
		return nil, dbErr("list held achievements", err)
	}
	defer rows.Close()

	held := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, dbErr("scan held achievement", err)
		}
		held[id] = true
	}
	return held, dbErr("list held achievements", rows.Err())
}

// InsertUserAchievement returns repository.ErrDuplicate when the user
// already holds the achievement.
func (r *achievementRepository) InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	if ua.AchievedAt.IsZero() {
		ua.AchievedAt = time.Now().UTC()
	}
	log.Debug("awarding achievement: user_id=%s, achievement_id=%s", ua.UserID, ua.AchievementID)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO user_achievements (id, user_id, achievement_id, achieved_at, progress_data)
VALUES (?, ?, ?, ?, ?)
`, ua.ID, ua.UserID, ua.AchievementID, ua.AchievedAt, ua.ProgressData)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("achievement already held: user_id=%s, achievement_id=%s", ua.UserID, ua.AchievementID)
		} else {
			log.Error("failed to insert user achievement: %v", err)
		}
		return insertErr("insert user achievement", err)
	}
	return nil
}

func (r *achievementRepository) ListUserAchievements(ctx context.Context, userID uuid.UUID) ([]models.UserAchievementDetail, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("listing user achievements: user_id=%s", userID)

	rows, err := r.q.QueryContext(ctx, `
SELECT ua.id, ua.user_id, ua.achievement_id, ua.achieved_at, ua.progress_data,
       a.name, a.category, a.icon, a.points
FROM user_achievements ua
JOIN achievements a ON a.id = ua.achievement_id
WHERE ua.user_id = ?
ORDER BY ua.achieved_at DESC
`, userID)
	if err != nil {
		log.Error("failed to list user achievements: %v", err)
		return nil, dbErr("list user achievements", err)
	}
	defer rows.Close()

	var out []models.UserAchievementDetail
	for rows.Next() {
		var d models.UserAchievementDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.AchievementID, &d.AchievedAt, &d.ProgressData,
			&d.Name, &d.Category, &d.Icon, &d.Points); err != nil {
			log.Error("failed to scan user achievement row: %v", err)
			return nil, dbErr("scan user achievement", err)
		}
		out = append(out, d)
	}
	return out, dbErr("list user achievements", rows.Err())
}
