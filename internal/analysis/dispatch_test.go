package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDispatchPostsJobToProcessEndpoint(t *testing.T) {
	received := make(chan Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze/process" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get(InternalAPIKeyHeader); got != "internal-secret" {
			t.Errorf("api key header = %q", got)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- req
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL, "internal-secret", srv.Client(), zerolog.Nop())
	d.Dispatch(Request{JobID: "job-1", ImageURL: "https://cdn.example.com/temp/a.jpg", Difficulty: "beginner"})

	select {
	case req := <-received:
		if req.JobID != "job-1" {
			t.Fatalf("job id = %q", req.JobID)
		}
		if req.ImageURL != "https://cdn.example.com/temp/a.jpg" {
			t.Fatalf("image url = %q", req.ImageURL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never reached the endpoint")
	}
}

func TestDispatchSwallowsTriggerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close() // endpoint unreachable

	d := NewDispatcher(srv.URL, "internal-secret", nil, zerolog.Nop())
	// Must not panic or block; the failure is logged only.
	d.Dispatch(Request{JobID: "job-2"})
	time.Sleep(50 * time.Millisecond)
}
