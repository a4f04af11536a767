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

type userRepository struct {
	q repository.Querier
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(q repository.Querier) repository.UserRepository {
	return &userRepository{q: q}
}

const userColumns = `id, username, points, experience, total_study_time, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Points, &u.Experience, &u.TotalStudyTime, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user: id=%s", id)

	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("user not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user: %v", err)
		return nil, dbErr("get user", err)
	}
	return u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")

	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user by username: %v", err)
		return nil, dbErr("get user by username", err)
	}
	return u, nil
}

func (r *userRepository) Insert(ctx context.Context, u *models.User) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	log.Debug("inserting user: username=%s", u.Username)

	_, err := r.q.ExecContext(ctx, `
INSERT INTO users (id, username, points, experience, total_study_time, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, u.ID, u.Username, u.Points, u.Experience, u.TotalStudyTime, u.CreatedAt)
	if err != nil {
		log.Error("failed to insert user: %v", err)
		return insertErr("insert user", err)
	}
	return nil
}

func (r *userRepository) AddPoints(ctx context.Context, id uuid.UUID, points, experience int) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("adding points: user_id=%s, points=%d, experience=%d", id, points, experience)

	res, err := r.q.ExecContext(ctx, `
UPDATE users SET points = points + ?, experience = experience + ? WHERE id = ?
`, points, experience, id)
	if err != nil {
		log.Error("failed to add points: %v", err)
		return dbErr("add points", err)
	}
	return expectOne("add points", res)
}

func (r *userRepository) AddStudyTime(ctx context.Context, id uuid.UUID, minutes int) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("adding study time: user_id=%s, minutes=%d", id, minutes)

	res, err := r.q.ExecContext(ctx, `UPDATE users SET total_study_time = total_study_time + ? WHERE id = ?`, minutes, id)
	if err != nil {
		log.Error("failed to add study time: %v", err)
		return dbErr("add study time", err)
	}
	return expectOne("add study time", res)
}

func (r *userRepository) Top(ctx context.Context, limit int) ([]models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	if limit <= 0 {
		limit = 10
	}
	log.Debug("listing top users: limit=%d", limit)

	rows, err := r.q.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY points DESC, created_at ASC
LIMIT ?
`, limit)
	if err != nil {
		log.Error("failed to list top users: %v", err)
		return nil, dbErr("list top users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.Error("failed to scan user row: %v", err)
			return nil, dbErr("scan user", err)
		}
		users = append(users, *u)
	}
	return users, dbErr("list top users", rows.Err())
}
