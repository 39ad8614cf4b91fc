package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/analysis"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
)

type analyzeRequest struct {
	ImageURL       string `json:"imageUrl"`
	TargetLanguage string `json:"targetLanguage"`
	NativeLanguage string `json:"nativeLanguage"`
	Difficulty     string `json:"difficulty"`
}

type analyzeResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Cached bool   `json:"cached,omitempty"`
}

// Wire status labels for job submissions and polls. A stored "pending" job is
// reported as "processing" to callers.
const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// resolveParams fills missing submit parameters from the caller's stored
// preferences and normalizes the language tags. An unresolved native
// language falls back to the request locale.
func (a *App) resolveParams(ctx context.Context, userID string, req *analyzeRequest) {
	if req.TargetLanguage == "" || req.NativeLanguage == "" || req.Difficulty == "" {
		row := a.SQL.QueryRow(ctx, sqlinline.QSelectUserPreferences, userID)
		var target, native, diff string
		if err := row.Scan(&target, &native, &diff); err != nil {
			if !infra.IsNoRows(err) {
				a.Logger.Error().Err(err).Str("user_id", userID).Msg("load preferences failed")
			}
		} else {
			if req.TargetLanguage == "" {
				req.TargetLanguage = target
			}
			if req.NativeLanguage == "" {
				req.NativeLanguage = native
			}
			if req.Difficulty == "" {
				req.Difficulty = diff
			}
		}
	}
	req.TargetLanguage = domain.NormalizeLanguageTag(req.TargetLanguage, "en")
	req.NativeLanguage = domain.NormalizeLanguageTag(req.NativeLanguage, middleware.LocaleFromContext(ctx))
	req.Difficulty = string(domain.NormalizeDifficulty(req.Difficulty))
}

// submitLesson runs the dedup insert and reports (jobID, inserted). A
// concurrent submit of the same image can leave the insert arm empty while
// its snapshot predates the winning row, so no-rows re-selects by key.
func (a *App) submitLesson(ctx context.Context, userID string, req analyzeRequest) (string, bool, error) {
	row := a.SQL.QueryRow(ctx, sqlinline.QInsertLesson,
		userID, req.ImageURL, req.TargetLanguage, req.NativeLanguage, req.Difficulty)
	var jobID string
	var inserted bool
	err := row.Scan(&jobID, &inserted)
	if err == nil {
		return jobID, inserted, nil
	}
	if !infra.IsNoRows(err) {
		return "", false, err
	}
	row = a.SQL.QueryRow(ctx, sqlinline.QSelectLessonIDByImage, userID, req.ImageURL)
	if err := row.Scan(&jobID); err != nil {
		return "", false, err
	}
	return jobID, false, nil
}

// Analyze accepts an analysis job, dedups it against the caller's history and
// triggers background processing for fresh submissions. The response never
// waits on inference.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.ImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "imageUrl required")
		return
	}
	a.resolveParams(r.Context(), userID, &req)

	jobID, inserted, err := a.submitLesson(r.Context(), userID, req)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("submit lesson failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	if !inserted {
		// Cached hit: report the stored state but map pending back to the
		// wire label "processing".
		status := statusProcessing
		if lesson, err := a.loadLesson(r.Context(), jobID); err == nil && lesson.Status == domain.LessonStatusCompleted {
			status = statusCompleted
		}
		a.json(w, http.StatusOK, analyzeResponse{Status: status, JobID: jobID, Cached: true})
		return
	}

	a.Dispatcher.Dispatch(analysis.Request{
		JobID:          jobID,
		ImageURL:       req.ImageURL,
		TargetLanguage: req.TargetLanguage,
		NativeLanguage: req.NativeLanguage,
		Difficulty:     req.Difficulty,
	})
	a.json(w, http.StatusAccepted, analyzeResponse{Status: statusProcessing, JobID: jobID})
}
