package api

import (
	"net/http"
	"strings"

	"github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/services"
)

// checkRequest selects which achievement check to run. Kind defaults to "all".
type checkRequest struct {
	Kind               string  `json:"kind"`
	ProgressID         string  `json:"progress_id"`
	CurrentStreak      int     `json:"current_streak"`
	Subject            string  `json:"subject"`
	Level              float64 `json:"level"`
	HelpGiven          int     `json:"help_given"`
	ParticipationScore int     `json:"participation_score"`
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AchievementFilter{
		Category:      strings.ToLower(q.Get("category")),
		IncludeHidden: q.Get("include_hidden") == "true",
	}
	list, err := s.Achievements.ListAchievements(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleUserAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	list, err := s.Achievements.ListUserAchievements(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleRecommendedAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}
	recs, err := s.Achievements.GetRecommendedAchievements(r.Context(), userID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recs)
}

func (s *Server) handleAchievementProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	achievementID, err := pathUUID(r, "achievementID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	est, err := s.Achievements.GetAchievementProgress(r.Context(), userID, achievementID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, est)
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	req := checkRequest{Kind: "all"}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}
	}
	log.Debug("achievement check requested: user_id=%s, kind=%s", userID, req.Kind)

	ctx := r.Context()
	var awarded []models.UserAchievement
	switch strings.ToLower(req.Kind) {
	case "", "all":
		awarded, err = s.Achievements.CheckAllAchievements(ctx, userID)
	case models.CategoryUser:
		awarded, err = s.Achievements.CheckUserAchievements(ctx, userID)
	case models.CategoryProgress:
		progressID, perr := parseUUID("progress_id", req.ProgressID)
		if perr != nil {
			handleError(w, r, perr)
			return
		}
		awarded, err = s.Achievements.CheckProgressAchievements(ctx, userID, progressID)
	case models.CategoryStreak:
		awarded, err = s.Achievements.CheckStreakAchievements(ctx, userID, req.CurrentStreak)
	case models.CategoryMastery:
		awarded, err = s.Achievements.CheckMasteryAchievements(ctx, userID, req.Subject, req.Level)
	case models.CategorySocial:
		awarded, err = s.Achievements.CheckSocialAchievements(ctx, userID, services.SocialActivity{
			HelpGiven:          req.HelpGiven,
			ParticipationScore: req.ParticipationScore,
		})
	default:
		handleError(w, r, errors.NewValidationError("kind", "must be one of all, user, progress, streak, mastery, social"))
		return
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	if awarded == nil {
		awarded = []models.UserAchievement{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"awarded": awarded})
}
