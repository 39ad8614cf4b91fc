package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"server/internal/sqlinline"
)

func TestPreferencesGetDefaultsFollowRequestLocale(t *testing.T) {
	sql := &fakeSQL{
		rowFor: func(query string, args []any) pgx.Row {
			if query != sqlinline.QSelectUserPreferences {
				t.Fatalf("unexpected query: %s", query)
			}
			return SimpleRow{}
		},
	}
	app := newTestApp(sql, nil)

	req := withLocale(authed(httptest.NewRequest(http.MethodGet, "/v1/me/preferences", nil), "user-1"), "zh")
	rec := httptest.NewRecorder()
	app.PreferencesGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got preferencesPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.TargetLanguage != "en" || got.NativeLanguage != "zh" || got.Difficulty != "beginner" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestPreferencesGetReturnsStoredRow(t *testing.T) {
	sql := &fakeSQL{
		rowFor: func(query string, args []any) pgx.Row {
			return NewSimpleRow(scanValues("zh", "en", "advanced"))
		},
	}
	app := newTestApp(sql, nil)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/me/preferences", nil), "user-1")
	rec := httptest.NewRecorder()
	app.PreferencesGet(rec, req)

	var got preferencesPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.TargetLanguage != "zh" || got.NativeLanguage != "en" || got.Difficulty != "advanced" {
		t.Fatalf("unexpected preferences: %+v", got)
	}
}

func TestPreferencesUpdateNormalizesAndStores(t *testing.T) {
	sql := &fakeSQL{}
	app := newTestApp(sql, nil)

	body := `{"targetLanguage":"EN","nativeLanguage":"","difficulty":"expert"}`
	req := withLocale(authed(httptest.NewRequest(http.MethodPut, "/v1/me/preferences", strings.NewReader(body)), "user-1"), "zh")
	rec := httptest.NewRecorder()
	app.PreferencesUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sql.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(sql.execs))
	}
	args := sql.execs[0].args
	if args[1] != "en" || args[2] != "zh" || args[3] != "beginner" {
		t.Fatalf("unexpected stored values: %v", args)
	}
}
