package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/storage"
)

// fakeSQL routes queries to canned results and records every Exec.
type fakeSQL struct {
	rowFor   func(query string, args []any) pgx.Row
	queryFor func(query string, args []any) (pgx.Rows, error)
	execErr  error
	execs    []execCall
}

type execCall struct {
	query string
	args  []any
}

func (f *fakeSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if f.rowFor == nil {
		return SimpleRow{}
	}
	return f.rowFor(query, args)
}

func (f *fakeSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.queryFor == nil {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	return f.queryFor(query, args)
}

var _ infra.SQLExecutor = (*fakeSQL)(nil)

// testRows serves fixed value tuples through the pgx.Rows interface.
type testRows struct {
	TestRowsBase
	rows [][]any
	idx  int
	err  error
}

func (r *testRows) Close()     {}
func (r *testRows) Err() error { return r.err }

func (r *testRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *testRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: %d dest, %d values", len(dest), len(row))
	}
	for i, v := range row {
		if err := assign(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}

func assign(dest, val any) error {
	switch d := dest.(type) {
	case *string:
		*d = val.(string)
	case *bool:
		*d = val.(bool)
	case *int:
		*d = val.(int)
	case *[]byte:
		if val == nil {
			*d = nil
		} else {
			*d = val.([]byte)
		}
	case *time.Time:
		*d = val.(time.Time)
	default:
		return fmt.Errorf("unsupported scan dest %T", dest)
	}
	return nil
}

func scanValues(values ...any) func(dest ...any) error {
	rows := &testRows{rows: [][]any{values}}
	rows.Next()
	return rows.Scan
}

// fakeObjectStore records object operations for media assertions.
type fakeObjectStore struct {
	objects map[string][]byte
	copyErr error
	delErr  error
	copies  []string
	deletes []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStore) Copy(ctx context.Context, src, dst string) error {
	if s.copyErr != nil {
		return s.copyErr
	}
	data, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("no such object: %s", src)
	}
	s.objects[dst] = data
	s.copies = append(s.copies, src+"->"+dst)
	return nil
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.objects, key)
	s.deletes = append(s.deletes, key)
	return nil
}

var _ storage.ObjectStore = (*fakeObjectStore)(nil)

const testDomain = "https://cdn.example.com"

func newTestApp(sql *fakeSQL, store *fakeObjectStore) *App {
	cfg := &infra.Config{
		InternalAPIKey:  "internal-secret",
		CronSecret:      "cron-secret",
		RetentionWindow: 24 * time.Hour,
	}
	var media *storage.MediaManager
	if store != nil {
		media = storage.NewMediaManager(store, testDomain, zerolog.Nop())
	}
	return &App{
		SQL:    sql,
		Config: cfg,
		Media:  media,
		Logger: zerolog.Nop(),
	}
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func withLocale(r *http.Request, locale string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.LocaleKey, locale))
}
