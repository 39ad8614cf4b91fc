package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"server/internal/sqlinline"
)

type cleanupResponse struct {
	Success      bool     `json:"success"`
	DeletedCount int      `json:"deletedCount"`
	DeletedIDs   []string `json:"deletedIds"`
}

// CronCleanup reaps unsaved lessons past the retention window, object first,
// then row. An object delete failure still removes the row so a broken store
// cannot make the sweep grow without bound. Re-running is harmless.
func (a *App) CronCleanup(w http.ResponseWriter, r *http.Request) {
	if !a.cronAuthorized(r) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid cron secret")
		return
	}

	cutoff := time.Now().Add(-a.Config.RetentionWindow)
	rows, err := a.SQL.Query(r.Context(), sqlinline.QSelectStaleLessons, cutoff)
	if err != nil {
		a.Logger.Error().Err(err).Msg("cleanup: select stale lessons failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to select stale lessons")
		return
	}

	type staleLesson struct {
		id       string
		imageURL string
	}
	var stale []staleLesson
	for rows.Next() {
		var s staleLesson
		if err := rows.Scan(&s.id, &s.imageURL); err != nil {
			rows.Close()
			a.Logger.Error().Err(err).Msg("cleanup: scan stale lesson failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to read stale lessons")
			return
		}
		stale = append(stale, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("cleanup: stale lesson iteration failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read stale lessons")
		return
	}

	deleted := make([]string, 0, len(stale))
	for _, s := range stale {
		if ok := a.Media.Delete(r.Context(), s.imageURL); !ok {
			a.Logger.Warn().Str("lesson_id", s.id).Str("image_url", s.imageURL).Msg("cleanup: object removal failed")
		}
		if _, err := a.SQL.Exec(r.Context(), sqlinline.QDeleteLesson, s.id); err != nil {
			a.Logger.Error().Err(err).Str("lesson_id", s.id).Msg("cleanup: row removal failed")
			continue
		}
		deleted = append(deleted, s.id)
	}

	a.Logger.Info().Int("deleted", len(deleted)).Int("candidates", len(stale)).Msg("cleanup: sweep finished")
	a.json(w, http.StatusOK, cleanupResponse{Success: true, DeletedCount: len(deleted), DeletedIDs: deleted})
}

func (a *App) cronAuthorized(r *http.Request) bool {
	if a.Config.CronSecret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(a.Config.CronSecret)) == 1
}
