package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type store struct {
	db *sql.DB
}

// NewStore creates a Store over db. db must be limited to one open connection.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db}
}

// NewRepositories binds every repository to q.
func NewRepositories(q repository.Querier) repository.Repositories {
	return repository.Repositories{
		Users:           &userRepository{q: q},
		Courses:         &courseRepository{q: q},
		Progress:        &progressRepository{q: q},
		Completions:     &completionRepository{q: q},
		ContentProgress: &contentProgressRepository{q: q},
		Achievements:    &achievementRepository{q: q},
		Events:          &eventRepository{q: q},
		Rewards:         &rewardRepository{q: q},
	}
}

func (s *store) Repos() repository.Repositories {
	return NewRepositories(s.db)
}

func (s *store) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	log := logger.FromContext(ctx).WithPrefix("repo")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return apperrors.NewDatabaseError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			log.Error("transaction rolled back after panic: %v", p)
			panic(p)
		}
	}()

	if err := fn(NewRepositories(tx)); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		if _, ok := apperrors.AsAppError(err); ok {
			return err
		}
		return apperrors.NewDatabaseError("transaction", err)
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return apperrors.NewDatabaseError("commit transaction", err)
	}
	log.Debug("transaction committed")
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}

// insertErr maps UNIQUE violations to repository.ErrDuplicate.
func insertErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, repository.ErrDuplicate)
	}
	return apperrors.NewDatabaseError(op, err)
}

func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.NewDatabaseError(op, err)
}

// expectOne turns a zero-row update into repository.ErrNotFound.
func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
