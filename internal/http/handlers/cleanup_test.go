package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"server/internal/sqlinline"
)

func cronRequest(secret string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/cron/cleanup", nil)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	return req
}

func TestCronCleanupRejectsBadSecret(t *testing.T) {
	app := newTestApp(&fakeSQL{}, nil)
	rec := httptest.NewRecorder()
	app.CronCleanup(rec, cronRequest("wrong"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCronCleanupReapsStaleLessons(t *testing.T) {
	store := newFakeObjectStore()
	store.objects["temp/a.jpg"] = []byte("img")
	store.objects["temp/b.jpg"] = []byte("img")

	var cutoffArg time.Time
	sql := &fakeSQL{
		queryFor: func(query string, args []any) (pgx.Rows, error) {
			if query != sqlinline.QSelectStaleLessons {
				t.Fatalf("unexpected query: %s", query)
			}
			cutoffArg = args[0].(time.Time)
			return &testRows{rows: [][]any{
				{"job-1", testDomain + "/temp/a.jpg"},
				{"job-2", testDomain + "/temp/b.jpg"},
			}}, nil
		},
	}
	app := newTestApp(sql, store)

	rec := httptest.NewRecorder()
	app.CronCleanup(rec, cronRequest("cron-secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp cleanupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.DeletedCount != 2 || len(resp.DeletedIDs) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(sql.execs) != 2 {
		t.Fatalf("expected two row deletes, got %+v", sql.execs)
	}
	if len(store.objects) != 0 {
		t.Fatalf("objects left behind: %v", store.objects)
	}

	// The cutoff must trail now by the retention window.
	age := time.Since(cutoffArg)
	if age < 23*time.Hour || age > 25*time.Hour {
		t.Fatalf("cutoff age = %s, want ~24h", age)
	}
}

func TestCronCleanupObjectFailureStillDeletesRow(t *testing.T) {
	store := newFakeObjectStore()
	store.delErr = http.ErrHandlerTimeout
	sql := &fakeSQL{
		queryFor: func(query string, args []any) (pgx.Rows, error) {
			return &testRows{rows: [][]any{
				{"job-1", testDomain + "/temp/a.jpg"},
			}}, nil
		},
	}
	app := newTestApp(sql, store)

	rec := httptest.NewRecorder()
	app.CronCleanup(rec, cronRequest("cron-secret"))

	var resp cleanupResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.DeletedCount != 1 {
		t.Fatalf("expected row delete despite object failure: %+v", resp)
	}
}

func TestCronCleanupEmptySweep(t *testing.T) {
	sql := &fakeSQL{
		queryFor: func(query string, args []any) (pgx.Rows, error) {
			return &testRows{}, nil
		},
	}
	app := newTestApp(sql, newFakeObjectStore())

	rec := httptest.NewRecorder()
	app.CronCleanup(rec, cronRequest("cron-secret"))

	var resp cleanupResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.DeletedCount != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
