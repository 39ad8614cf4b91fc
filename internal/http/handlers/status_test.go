package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"

	"server/internal/sqlinline"
)

func statusApp(t *testing.T, scan func(dest ...any) error) *App {
	t.Helper()
	sql := &fakeSQL{
		rowFor: func(query string, args []any) pgx.Row {
			if query != sqlinline.QSelectLessonByID {
				t.Fatalf("unexpected query: %s", query)
			}
			if scan == nil {
				return SimpleRow{}
			}
			return NewSimpleRow(scan)
		},
	}
	return newTestApp(sql, nil)
}

func getStatus(t *testing.T, app *App, jobID, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/analyze/status?job_id="+jobID, nil)
	if userID != "" {
		req = authed(req, userID)
	}
	rec := httptest.NewRecorder()
	app.AnalyzeStatus(rec, req)
	return rec
}

func TestAnalyzeStatusPending(t *testing.T) {
	app := statusApp(t, lessonScan("job-1", "user-1", "https://cdn.example.com/temp/a.jpg", "pending", nil, "", false))
	rec := getStatus(t, app, "job-1", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp statusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "processing" || resp.JobID != "" || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnalyzeStatusCompleted(t *testing.T) {
	raw := []byte(`{"description":{"target":"a dog","native":"一只狗"},"vocabulary":[]}`)
	app := statusApp(t, lessonScan("job-1", "user-1", "https://cdn.example.com/temp/a.jpg", "completed", raw, "", false))
	rec := getStatus(t, app, "job-1", "user-1")
	var resp statusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "completed" || resp.JobID != "job-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnalyzeStatusFailed(t *testing.T) {
	app := statusApp(t, lessonScan("job-1", "user-1", "https://cdn.example.com/temp/a.jpg", "failed", nil, "image fetch failed: status 404", false))
	rec := getStatus(t, app, "job-1", "user-1")
	var resp statusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "failed" || resp.Error == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnalyzeStatusUnknownJob(t *testing.T) {
	app := statusApp(t, nil)
	rec := getStatus(t, app, "missing", "user-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyzeStatusOwnershipMismatch(t *testing.T) {
	app := statusApp(t, lessonScan("job-1", "user-1", "https://cdn.example.com/temp/a.jpg", "pending", nil, "", false))
	rec := getStatus(t, app, "job-1", "user-2")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAnalyzeStatusRequiresJobID(t *testing.T) {
	app := statusApp(t, nil)
	rec := getStatus(t, app, "", "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
