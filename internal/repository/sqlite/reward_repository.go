package sqlite

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

type rewardRepository struct {
	q repository.Querier
}

// NewRewardRepository creates a new RewardRepository implementation
func NewRewardRepository(q repository.Querier) repository.RewardRepository {
	return &rewardRepository{q: q}
}

var rewardColumns = []string{
	"id", "user_id", "reward_trigger", "points", "experience", "rewards", "multipliers_applied", "event_id", "created_at",
}

// Insert returns repository.ErrDuplicate when the event already granted this trigger.
func (r *rewardRepository) Insert(ctx context.Context, g *models.RewardGrant) error {
	log := logger.FromContext(ctx).WithPrefix("reward_repo")
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	log.Debug("recording reward grant: user_id=%s, trigger=%s, points=%d", g.UserID, g.Trigger, g.Points)

	stmt, args, err := sqlBuilder.Insert("reward_grants").
		Columns(rewardColumns...).
		Values(g.ID, g.UserID, string(g.Trigger), g.Points, g.Experience, g.Rewards, g.MultipliersApplied, g.EventID, g.CreatedAt).
		ToSql()
	if err != nil {
		log.Error("failed to build insert: %v", err)
		return err
	}
	if _, err := r.q.ExecContext(ctx, stmt, args...); err != nil {
		log.Error("failed to insert reward grant: %v", err)
		return insertErr("insert reward grant", err)
	}
	return nil
}

// List returns the newest grants first.
func (r *rewardRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardGrant, error) {
	log := logger.FromContext(ctx).WithPrefix("reward_repo")
	if limit <= 0 {
		limit = 50
	}
	log.Debug("listing reward grants: user_id=%s, limit=%d", userID, limit)

	stmt, args, err := sqlBuilder.Select(rewardColumns...).
		From("reward_grants").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list reward grants: %v", err)
		return nil, dbErr("list reward grants", err)
	}
	defer rows.Close()

	var out []models.RewardGrant
	for rows.Next() {
		var g models.RewardGrant
		var trigger string
		if err := rows.Scan(&g.ID, &g.UserID, &trigger, &g.Points, &g.Experience, &g.Rewards, &g.MultipliersApplied, &g.EventID, &g.CreatedAt); err != nil {
			log.Error("failed to scan reward grant row: %v", err)
			return nil, dbErr("scan reward grant", err)
		}
		g.Trigger = models.Trigger(trigger)
		out = append(out, g)
	}
	return out, dbErr("list reward grants", rows.Err())
}
