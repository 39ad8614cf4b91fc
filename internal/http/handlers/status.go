package handlers

import (
	"errors"
	"net/http"
	"strings"

	"server/internal/domain"
)

type statusResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AnalyzeStatus is the polling endpoint for submitted jobs. It is read-only;
// a stuck pending job is reported as processing and left for the claim-loop
// worker to pick up.
func (a *App) AnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := strings.TrimSpace(r.URL.Query().Get("job_id"))
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	lesson, err := a.loadLessonForUser(r.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, domain.ErrForbidden):
			a.error(w, http.StatusForbidden, "forbidden", "job belongs to another user")
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status: load job failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		}
		return
	}

	switch lesson.Status {
	case domain.LessonStatusCompleted:
		a.json(w, http.StatusOK, statusResponse{Status: statusCompleted, JobID: lesson.ID})
	case domain.LessonStatusFailed:
		a.json(w, http.StatusOK, statusResponse{Status: statusFailed, Error: lesson.ErrorDetail})
	default:
		a.json(w, http.StatusOK, statusResponse{Status: statusProcessing})
	}
}
