package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/services"
)

const requestTimeout = 30 * time.Second

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	Progress     services.ProgressService
	Achievements services.AchievementService
	Rewards      services.RewardsService
	Dispatcher   services.EventDispatcher
	DB           Pinger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Get("/achievements", s.handleListAchievements)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Post("/outbox/dispatch", s.handleDispatch)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/stats", s.handleUserStats)
		r.Get("/activity", s.handleActivity)
		r.Get("/progress", s.handleListProgress)
		r.Post("/study-time", s.handleAddStudyTime)

		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Post("/progress", s.handleCreateProgress)
			r.Get("/progress", s.handleGetProgress)
			r.Get("/weighted", s.handleWeightedProgress)
			r.Post("/sync", s.handleSyncProgress)
			r.Put("/current-lesson", s.handleUpdateCurrentLesson)
		})
		r.Post("/lessons/{lessonID}/complete", s.handleCompleteLesson)
		r.Put("/contents/{contentID}/progress", s.handleUpdateContentProgress)

		r.Get("/achievements", s.handleUserAchievements)
		r.Get("/achievements/recommended", s.handleRecommendedAchievements)
		r.Get("/achievements/{achievementID}/progress", s.handleAchievementProgress)
		r.Post("/achievements/check", s.handleCheckAchievements)

		r.Get("/level", s.handleUserLevel)
		r.Get("/streak", s.handleStreak)
		r.Get("/rewards", s.handleRewardHistory)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
	})
	return r
}
