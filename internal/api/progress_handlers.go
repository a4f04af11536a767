package api

import (
	"net/http"

	"github.com/vytor/mathtermind/internal/errors"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/models"
)

type completeLessonRequest struct {
	CourseID  string   `json:"course_id"`
	Score     *float64 `json:"score"`
	TimeSpent int      `json:"time_spent"`
}

type contentProgressRequest struct {
	Status     string         `json:"status"`
	Score      *float64       `json:"score"`
	TimeSpent  int            `json:"time_spent"`
	CustomData map[string]any `json:"custom_data"`
}

type currentLessonRequest struct {
	LessonID string `json:"lesson_id"`
}

type studyTimeRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handleCreateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := pathUUID(r, "courseID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	progress, err := s.Progress.CreateCourseProgress(r.Context(), userID, courseID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, progress)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := pathUUID(r, "courseID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	progress, err := s.Progress.GetCourseProgress(r.Context(), userID, courseID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if progress == nil {
		handleError(w, r, errors.NewNotFoundError("progress", courseID))
		return
	}
	writeJSON(w, r, http.StatusOK, progress)
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	list, err := s.Progress.ListCourseProgress(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleWeightedProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := pathUUID(r, "courseID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	pct, details := s.Progress.CalculateWeightedCourseProgress(r.Context(), userID, courseID)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"percentage": pct,
		"details":    details,
	})
}

func (s *Server) handleSyncProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := pathUUID(r, "courseID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	synced, err := s.Progress.SyncProgressData(r.Context(), userID, courseID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"synced": synced})
}

func (s *Server) handleUpdateCurrentLesson(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := pathUUID(r, "courseID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req currentLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	lessonID, err := parseUUID("lesson_id", req.LessonID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.Progress.UpdateCurrentLesson(r.Context(), userID, courseID, lessonID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	lessonID, err := pathUUID(r, "lessonID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req completeLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	courseID, err := parseUUID("course_id", req.CourseID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Debug("complete lesson request: user_id=%s, lesson_id=%s", userID, lessonID)

	completed, err := s.Progress.CompleteLesson(r.Context(), userID, lessonID, courseID, req.Score, req.TimeSpent)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, completed)
}

func (s *Server) handleUpdateContentProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	contentID, err := pathUUID(r, "contentID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req contentProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	cp, err := s.Progress.UpdateContentProgress(r.Context(), userID, contentID,
		models.ContentStatus(req.Status), req.Score, req.TimeSpent, req.CustomData)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cp)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	stats, err := s.Progress.GetUserStats(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	activity, err := s.Progress.GetActivityByDay(r.Context(), userID, days)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, activity)
}

func (s *Server) handleAddStudyTime(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req studyTimeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Progress.AddStudyTime(r.Context(), userID, req.Minutes); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if s.Dispatcher == nil {
		handleError(w, r, errors.NewBadRequestError("outbox dispatcher not configured"))
		return
	}
	summary, err := s.Dispatcher.Dispatch(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}
