package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
)

type preferencesPayload struct {
	TargetLanguage string `json:"targetLanguage"`
	NativeLanguage string `json:"nativeLanguage"`
	Difficulty     string `json:"difficulty"`
}

// PreferencesGet returns the caller's stored learning defaults, falling back
// to locale-derived defaults when none were saved yet.
func (a *App) PreferencesGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	prefs := preferencesPayload{
		TargetLanguage: "en",
		NativeLanguage: middleware.LocaleFromContext(r.Context()),
		Difficulty:     string(domain.DifficultyBeginner),
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserPreferences, userID)
	if err := row.Scan(&prefs.TargetLanguage, &prefs.NativeLanguage, &prefs.Difficulty); err != nil && !infra.IsNoRows(err) {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("load preferences failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load preferences")
		return
	}
	a.json(w, http.StatusOK, prefs)
}

// PreferencesUpdate stores the caller's learning defaults.
func (a *App) PreferencesUpdate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var payload preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	payload.TargetLanguage = domain.NormalizeLanguageTag(payload.TargetLanguage, "en")
	payload.NativeLanguage = domain.NormalizeLanguageTag(payload.NativeLanguage, middleware.LocaleFromContext(r.Context()))
	payload.Difficulty = string(domain.NormalizeDifficulty(payload.Difficulty))

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QUpsertUserPreferences,
		userID, payload.TargetLanguage, payload.NativeLanguage, payload.Difficulty); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("store preferences failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store preferences")
		return
	}
	a.json(w, http.StatusOK, payload)
}
