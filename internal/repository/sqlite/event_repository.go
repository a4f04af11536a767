package sqlite

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/repository"
)

type eventRepository struct {
	q repository.Querier
}

// NewEventRepository creates a new EventRepository implementation
func NewEventRepository(q repository.Querier) repository.EventRepository {
	return &eventRepository{q: q}
}

var eventColumns = []string{
	"id", "user_id", "kind", "payload", "created_at", "attempts", "completed_consumers", "last_errors", "processed_at",
}

func (r *eventRepository) Insert(ctx context.Context, e *models.ProgressEvent) error {
	log := logger.FromContext(ctx).WithPrefix("event_repo")
	log.Debug("enqueueing event: kind=%s, user_id=%s", e.Kind, e.UserID)

	stmt, args, err := sqlBuilder.Insert("progress_events").
		Columns(eventColumns...).
		Values(e.ID, e.UserID, string(e.Kind), e.Payload, e.CreatedAt, e.Attempts, e.CompletedConsumers, e.LastErrors, e.ProcessedAt).
		ToSql()
	if err != nil {
		log.Error("failed to build insert: %v", err)
		return err
	}
	if _, err := r.q.ExecContext(ctx, stmt, args...); err != nil {
		log.Error("failed to insert event: %v", err)
		return insertErr("insert event", err)
	}
	return nil
}

// Pending returns unprocessed events with attempts below maxAttempts, oldest first.
func (r *eventRepository) Pending(ctx context.Context, maxAttempts, limit int) ([]models.ProgressEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("event_repo")

	query := sqlBuilder.Select(eventColumns...).
		From("progress_events").
		Where(squirrel.Eq{"processed_at": nil}).
		Where(squirrel.Lt{"attempts": maxAttempts}).
		OrderBy("created_at ASC", "rowid ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list pending events: %v", err)
		return nil, dbErr("list pending events", err)
	}
	defer rows.Close()

	var out []models.ProgressEvent
	for rows.Next() {
		var e models.ProgressEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Payload, &e.CreatedAt, &e.Attempts,
			&e.CompletedConsumers, &e.LastErrors, &e.ProcessedAt); err != nil {
			log.Error("failed to scan event row: %v", err)
			return nil, dbErr("scan event", err)
		}
		e.Kind = models.EventKind(kind)
		if e.CompletedConsumers == nil {
			e.CompletedConsumers = models.StringList{}
		}
		if e.LastErrors == nil {
			e.LastErrors = models.StringMap{}
		}
		out = append(out, e)
	}
	log.Debug("found %d pending events", len(out))
	return out, dbErr("list pending events", rows.Err())
}

func (r *eventRepository) Update(ctx context.Context, e *models.ProgressEvent) error {
	log := logger.FromContext(ctx).WithPrefix("event_repo")
	log.Debug("updating event: id=%s, attempts=%d, processed=%t", e.ID, e.Attempts, e.ProcessedAt != nil)

	res, err := r.q.ExecContext(ctx, `
UPDATE progress_events
SET attempts = ?, completed_consumers = ?, last_errors = ?, processed_at = ?
WHERE id = ?
`, e.Attempts, e.CompletedConsumers, e.LastErrors, e.ProcessedAt, e.ID)
	if err != nil {
		log.Error("failed to update event: %v", err)
		return dbErr("update event", err)
	}
	return expectOne("update event", res)
}
