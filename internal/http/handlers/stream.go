package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/analysis"
	"server/internal/domain"
)

// sseWriter emits server-sent event frames. Write failures after a client
// disconnect are swallowed: the pipeline keeps running regardless.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) frame(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if _, err := s.w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

type streamFrame struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Error  string `json:"error,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

// AnalyzeStream serves analysis over one held connection instead of polling.
// Heartbeat frames are emitted per inference increment so idle-timeout
// proxies do not cut the connection while the model works. The job row is
// written even if the client goes away mid-run.
func (a *App) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("stream: submit lesson failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	sse := newSSEWriter(w)
	sse.frame(streamFrame{Status: "starting"})

	if !inserted {
		if lesson, err := a.loadLesson(r.Context(), jobID); err == nil && lesson.Status.IsTerminal() {
			if lesson.Status == domain.LessonStatusCompleted {
				sse.frame(streamFrame{Status: statusCompleted, JobID: jobID, Cached: true})
			} else {
				sse.frame(streamFrame{Status: "error", Error: lesson.ErrorDetail, Cached: true})
			}
			return
		}
		// Pending duplicate: run the pipeline inline. The completion update
		// only applies while the row is still pending, so a concurrent run
		// cannot double-write.
	}

	sse.frame(streamFrame{Status: "analyzing"})

	// Client disconnect must not cancel the run; the row is written either way.
	ctx := context.WithoutCancel(r.Context())
	err = a.Worker.RunStream(ctx, analysis.Request{
		JobID:          jobID,
		ImageURL:       req.ImageURL,
		TargetLanguage: req.TargetLanguage,
		NativeLanguage: req.NativeLanguage,
		Difficulty:     req.Difficulty,
	}, func(string) {
		sse.frame(streamFrame{Status: statusProcessing})
	})
	if err != nil {
		sse.frame(streamFrame{Status: "error", Error: err.Error()})
		return
	}
	sse.frame(streamFrame{Status: statusCompleted, JobID: jobID})
}
