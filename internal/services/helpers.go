package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/repository"
)

// EventDispatcher delivers pending completion events after a commit.
type EventDispatcher interface {
	Dispatch(ctx context.Context) (outbox.Summary, error)
}

// serviceErr passes AppErrors through and wraps anything else as internal.
func serviceErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.NewInternalError(err)
}

func requireUser(ctx context.Context, repos repository.Repositories, userID uuid.UUID) (*models.User, error) {
	user, err := repos.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user", userID)
	}
	return user, nil
}

// activityTimes merges lesson completions and content interactions; either
// counts as activity for streaks.
func activityTimes(ctx context.Context, repos repository.Repositories, userID uuid.UUID, since *time.Time) ([]time.Time, error) {
	lessons, err := repos.Completions.LessonCompletionTimes(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	content, err := repos.ContentProgress.InteractionTimes(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return append(lessons, content...), nil
}

func validateScore(score *float64) error {
	if score != nil && (*score < 0 || *score > 100) {
		return apperrors.NewValidationError("score", "must be between 0 and 100")
	}
	return nil
}

func averageScore(lessons []models.CompletedLesson) *float64 {
	var sum float64
	n := 0
	for _, l := range lessons {
		if l.Score != nil {
			sum += *l.Score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
