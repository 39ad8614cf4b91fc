package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/analysis"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
	"server/internal/storage"
)

// App carries the shared dependencies of all HTTP handlers.
type App struct {
	SQL        infra.SQLExecutor
	Config     *infra.Config
	Media      *storage.MediaManager
	Worker     *analysis.Worker
	Dispatcher *analysis.Dispatcher
	Logger     zerolog.Logger
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	a.json(w, status, resp)
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// lessonView is the wire shape of a lesson record.
type lessonView struct {
	ID             string                 `json:"id"`
	ImageURL       string                 `json:"image_url"`
	Status         string                 `json:"status"`
	Result         *domain.AnalysisResult `json:"result,omitempty"`
	Error          string                 `json:"error,omitempty"`
	TargetLanguage string                 `json:"target_language"`
	NativeLanguage string                 `json:"native_language"`
	Difficulty     string                 `json:"difficulty"`
	IsSaved        bool                   `json:"is_saved"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func viewOf(l *domain.Lesson) lessonView {
	return lessonView{
		ID:             l.ID,
		ImageURL:       l.ImageURL,
		Status:         string(l.Status),
		Result:         l.Result,
		Error:          l.ErrorDetail,
		TargetLanguage: l.TargetLanguage,
		NativeLanguage: l.NativeLanguage,
		Difficulty:     string(l.Difficulty),
		IsSaved:        l.IsSaved,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

// loadLesson fetches one lesson row. Missing rows map to domain.ErrNotFound.
func (a *App) loadLesson(ctx context.Context, id string) (*domain.Lesson, error) {
	row := a.SQL.QueryRow(ctx, sqlinline.QSelectLessonByID, id)
	var (
		l      domain.Lesson
		raw    []byte
		status string
		diff   string
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.ImageURL, &status, &raw, &l.ErrorDetail,
		&l.TargetLanguage, &l.NativeLanguage, &diff, &l.IsSaved, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	l.Status = domain.LessonStatus(status)
	l.Difficulty = domain.Difficulty(diff)
	result, err := domain.DecodeResult(raw)
	if err != nil {
		a.Logger.Error().Err(err).Str("lesson_id", l.ID).Msg("stored result is not decodable")
	} else {
		l.Result = result
	}
	return &l, nil
}

// loadLessonForUser enforces ownership on top of loadLesson.
func (a *App) loadLessonForUser(ctx context.Context, id, userID string) (*domain.Lesson, error) {
	l, err := a.loadLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return l, nil
}
