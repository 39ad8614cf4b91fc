package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/sqlinline"
	"server/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (a *App) writeLessonError(w http.ResponseWriter, err error, lessonID string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "lesson not found")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "lesson belongs to another user")
	default:
		a.Logger.Error().Err(err).Str("lesson_id", lessonID).Msg("load lesson failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load lesson")
	}
}

// LessonGet returns one lesson for the results view.
func (a *App) LessonGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	lessonID := chi.URLParam(r, "lesson_id")
	lesson, err := a.loadLessonForUser(r.Context(), lessonID, userID)
	if err != nil {
		a.writeLessonError(w, err, lessonID)
		return
	}
	a.json(w, http.StatusOK, viewOf(lesson))
}

// LessonSave pins a lesson: its image is promoted out of the temporary tier
// so cleanup never reaps it, and the row is flagged saved.
func (a *App) LessonSave(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	lessonID := chi.URLParam(r, "lesson_id")
	lesson, err := a.loadLessonForUser(r.Context(), lessonID, userID)
	if err != nil {
		a.writeLessonError(w, err, lessonID)
		return
	}

	imageURL := lesson.ImageURL
	if storage.InTempTier(imageURL) {
		imageURL = a.Media.Promote(r.Context(), imageURL)
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QMarkLessonSaved, lesson.ID, imageURL)
	var updatedID, updatedUser, updatedURL, status string
	var saved bool
	if err := row.Scan(&updatedID, &updatedUser, &updatedURL, &status, &saved); err != nil {
		a.Logger.Error().Err(err).Str("lesson_id", lessonID).Msg("save: update failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save lesson")
		return
	}

	lesson.ImageURL = updatedURL
	lesson.IsSaved = saved
	a.json(w, http.StatusOK, viewOf(lesson))
}

type deleteResponse struct {
	Success bool `json:"success"`
}

// LessonDelete removes a lesson and best-effort deletes its stored image.
// Object-store failures never block the row delete.
func (a *App) LessonDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	lessonID := chi.URLParam(r, "lesson_id")
	lesson, err := a.loadLessonForUser(r.Context(), lessonID, userID)
	if err != nil {
		a.writeLessonError(w, err, lessonID)
		return
	}

	if ok := a.Media.Delete(r.Context(), lesson.ImageURL); !ok {
		a.Logger.Warn().Str("lesson_id", lesson.ID).Str("image_url", lesson.ImageURL).Msg("delete: object removal failed")
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QDeleteLesson, lesson.ID); err != nil {
		a.Logger.Error().Err(err).Str("lesson_id", lesson.ID).Msg("delete: row removal failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete lesson")
		return
	}
	a.json(w, http.StatusOK, deleteResponse{Success: true})
}

// LessonList returns the caller's history, newest first.
func (a *App) LessonList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListLessonsByUser, userID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list lessons failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list lessons")
		return
	}
	defer rows.Close()

	views := make([]lessonView, 0, limit)
	for rows.Next() {
		var (
			l      domain.Lesson
			raw    []byte
			status string
			diff   string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.ImageURL, &status, &raw, &l.ErrorDetail,
			&l.TargetLanguage, &l.NativeLanguage, &diff, &l.IsSaved, &l.CreatedAt, &l.UpdatedAt); err != nil {
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("list lessons scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to list lessons")
			return
		}
		l.Status = domain.LessonStatus(status)
		l.Difficulty = domain.Difficulty(diff)
		if result, err := domain.DecodeResult(raw); err == nil {
			l.Result = result
		}
		views = append(views, viewOf(&l))
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("list lessons iteration failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list lessons")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"lessons": views})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
