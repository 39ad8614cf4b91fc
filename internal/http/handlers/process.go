package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"server/internal/analysis"
	"server/internal/sqlinline"
)

type processResponse struct {
	Success bool `json:"success"`
}

// Process runs the analysis pipeline for one job. It is the target of the
// fire-and-forget dispatch and of the claim-loop worker, authenticated by the
// shared internal key rather than a session.
func (a *App) Process(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(analysis.InternalAPIKeyHeader)
	if a.Config.InternalAPIKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(a.Config.InternalAPIKey)) != 1 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid internal key")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	var req analysis.Request
	err = json.Unmarshal(body, &req)
	if err != nil || strings.TrimSpace(req.JobID) == "" || strings.TrimSpace(req.ImageURL) == "" {
		// Best-effort: salvage the job id so the row does not stay pending
		// forever on a malformed trigger.
		if id := salvageJobID(body); id != "" {
			if _, err := a.SQL.Exec(r.Context(), sqlinline.QFailLesson, id, "invalid process payload"); err != nil {
				a.Logger.Error().Err(err).Str("job_id", id).Msg("process: mark malformed job failed")
			}
		}
		a.json(w, http.StatusBadRequest, processResponse{Success: false})
		return
	}

	// The trigger client may give up early; the pipeline must still finish
	// and write the job row.
	ctx := context.WithoutCancel(r.Context())
	if err := a.Worker.Run(ctx, req); err != nil {
		a.json(w, http.StatusOK, processResponse{Success: false})
		return
	}
	a.json(w, http.StatusOK, processResponse{Success: true})
}

func salvageJobID(body []byte) string {
	var loose struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(body, &loose); err != nil {
		return ""
	}
	return strings.TrimSpace(loose.JobID)
}
