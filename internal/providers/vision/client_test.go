package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIKey:     "dummy",
		Model:      "test-model",
		BaseURL:    "https://vision.example.com/v1",
		HTTPClient: &http.Client{Transport: rt},
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestAnalyzeSendsImagePayload(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://vision.example.com/v1/chat/completions" {
			t.Fatalf("unexpected endpoint %s", r.URL)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer dummy" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		body := `{"choices":[{"message":{"content":"{\"description\":{\"target\":\"t\",\"native\":\"n\"},\"vocabulary\":[]}"}}]}`
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	content, err := client.Analyze(context.Background(), AnalyzeRequest{
		ImageDataURI:   "data:image/jpeg;base64,aGk=",
		TargetLanguage: "en",
		NativeLanguage: "es",
		Difficulty:     domain.DifficultyBeginner,
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !strings.Contains(content, "description") {
		t.Fatalf("unexpected content %q", content)
	}
	if captured.Model != "test-model" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Stream {
		t.Fatal("blocking call must not set stream")
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(captured.Messages))
	}
	system, ok := captured.Messages[0].Content.(string)
	if !ok || !strings.Contains(system, "beginner") {
		t.Fatalf("system instruction missing difficulty: %v", captured.Messages[0].Content)
	}
}

func TestAnalyzeEndpointErrorIsNotExposedVerbatim(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 500, Body: io.NopCloser(strings.NewReader(`{"error":"internal gpu meltdown"}`))}, nil
	})
	_, err := client.Analyze(context.Background(), AnalyzeRequest{ImageDataURI: "data:image/jpeg;base64,aGk="})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if strings.Contains(err.Error(), "meltdown") {
		t.Fatalf("raw endpoint diagnostic leaked into error: %v", err)
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	if _, err := client.Analyze(context.Background(), AnalyzeRequest{ImageDataURI: "data:..."}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestAnalyzeStreamAccumulatesDeltas(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"{\"description\""}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":":\"hello\"}"}}]}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Fatal("expected stream flag")
		}
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(stream))}, nil
	})

	var heartbeats int
	content, err := client.AnalyzeStream(context.Background(), AnalyzeRequest{ImageDataURI: "data:..."}, func(string) {
		heartbeats++
	})
	if err != nil {
		t.Fatalf("AnalyzeStream returned error: %v", err)
	}
	if content != `{"description":"hello"}` {
		t.Fatalf("accumulated content = %q", content)
	}
	if heartbeats != 2 {
		t.Fatalf("heartbeats = %d, want 2", heartbeats)
	}
}

func TestBuildInstructionMentionsLanguagesAndShape(t *testing.T) {
	out := BuildInstruction("fr", "en", domain.DifficultyAdvanced)
	for _, want := range []string{"(fr)", "(en)", "advanced", "Respond ONLY in JSON", `"vocabulary"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("instruction missing %q:\n%s", want, out)
		}
	}
}
