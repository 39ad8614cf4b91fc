package vision

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// Options controls how the vision-language client is configured.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client calls an OpenAI-compatible chat-completions endpoint with image
// input. It is constructed once at startup and shared; all state is
// read-only after construction.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

const (
	defaultTimeout = 120 * time.Second
	defaultModel   = "zai-org/GLM-4.6V"
	defaultBaseURL = "https://api.siliconflow.cn/v1"
)

// NewClient validates the options and builds a ready-to-use client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("vision api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  opts.Logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// AnalyzeRequest carries one image analysis invocation.
type AnalyzeRequest struct {
	ImageDataURI   string
	TargetLanguage string
	NativeLanguage string
	Difficulty     domain.Difficulty
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream,omitempty"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Analyze runs a single blocking completion and returns the raw model text.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response content")
	}
	return content, nil
}

// AnalyzeStream runs the completion in incremental-delivery mode, invoking
// onDelta for every received increment, and returns the accumulated text.
// onDelta exists so callers can emit keep-alive frames while the model is
// still producing output.
func (c *Client) AnalyzeStream(ctx context.Context, req AnalyzeRequest, onDelta func(delta string)) (string, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Warn().Err(err).Msg("vision: skipping malformed stream chunk")
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	content := strings.TrimSpace(full.String())
	if content == "" {
		return "", errors.New("empty response content")
	}
	return content, nil
}

func (c *Client) send(ctx context.Context, req AnalyzeRequest, stream bool) (*http.Response, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: stream,
		Messages: []chatMessage{
			{Role: "system", Content: BuildInstruction(req.TargetLanguage, req.NativeLanguage, req.Difficulty)},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf("Analyze this image for a %s level student learning %s whose native language is %s.", req.Difficulty, req.TargetLanguage, req.NativeLanguage)},
				{Type: "image_url", ImageURL: &imageRef{URL: req.ImageDataURI}},
			}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		// The raw endpoint diagnostic stays in the logs only.
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("vision: endpoint returned error")
		return nil, fmt.Errorf("endpoint status %d", resp.StatusCode)
	}
	return resp, nil
}
