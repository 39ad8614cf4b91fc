package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/vision"
	"server/internal/sqlinline"
)

const defaultContentType = "image/jpeg"

// Analyzer is the slice of the vision client the worker depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req vision.AnalyzeRequest) (string, error)
	AnalyzeStream(ctx context.Context, req vision.AnalyzeRequest, onDelta func(delta string)) (string, error)
}

// Request identifies one analysis job and its parameters.
type Request struct {
	JobID          string `json:"jobId"`
	ImageURL       string `json:"imageUrl"`
	TargetLanguage string `json:"targetLanguage"`
	NativeLanguage string `json:"nativeLanguage"`
	Difficulty     string `json:"difficulty"`
}

// Worker executes the analysis pipeline for a single job: fetch the source
// image, call the inference endpoint, parse the output, persist the result.
// All steps run sequentially; each job is handled by exactly one invocation.
type Worker struct {
	sql          infra.SQLExecutor
	analyzer     Analyzer
	httpClient   *http.Client
	fetchTimeout time.Duration
	logger       zerolog.Logger
}

// NewWorker wires an analysis worker. httpClient is used for source image
// fetches only; the inference transport lives inside the analyzer.
func NewWorker(sql infra.SQLExecutor, analyzer Analyzer, httpClient *http.Client, fetchTimeout time.Duration, logger zerolog.Logger) *Worker {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Worker{
		sql:          sql,
		analyzer:     analyzer,
		httpClient:   httpClient,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Run executes the pipeline with a blocking inference call. Pipeline failures
// are written into the job row and returned for logging; they are never
// surfaced to an end user directly.
func (w *Worker) Run(ctx context.Context, req Request) error {
	return w.run(ctx, req, nil)
}

// RunStream behaves like Run but uses incremental delivery, invoking onDelta
// per received increment so the caller can emit keep-alive frames.
func (w *Worker) RunStream(ctx context.Context, req Request, onDelta func(delta string)) error {
	return w.run(ctx, req, onDelta)
}

func (w *Worker) run(ctx context.Context, req Request, onDelta func(delta string)) error {
	dataURI, err := w.fetchImageDataURI(ctx, req.ImageURL)
	if err != nil {
		return w.fail(ctx, req.JobID, fmt.Errorf("image fetch failed: %w", err))
	}

	visionReq := vision.AnalyzeRequest{
		ImageDataURI:   dataURI,
		TargetLanguage: req.TargetLanguage,
		NativeLanguage: req.NativeLanguage,
		Difficulty:     domain.NormalizeDifficulty(req.Difficulty),
	}

	var content string
	if onDelta != nil {
		content, err = w.analyzer.AnalyzeStream(ctx, visionReq, onDelta)
	} else {
		content, err = w.analyzer.Analyze(ctx, visionReq)
	}
	if err != nil {
		// The endpoint's raw diagnostic was already logged by the client.
		return w.fail(ctx, req.JobID, fmt.Errorf("ai analysis request failed: %w", err))
	}

	result, err := vision.ParseAnalysis(content)
	if err != nil {
		// Terminal: no retry beyond the fixed cleanup heuristics.
		return w.fail(ctx, req.JobID, fmt.Errorf("invalid model response: %w", err))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return w.fail(ctx, req.JobID, fmt.Errorf("encode result: %w", err))
	}
	if _, err := w.sql.Exec(ctx, sqlinline.QCompleteLesson, req.JobID, raw); err != nil {
		w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("worker: persist result failed")
		return err
	}
	w.logger.Info().Str("job_id", req.JobID).Int("vocabulary", len(result.Vocabulary)).Msg("worker: analysis completed")
	return nil
}

// fail records the error detail into the job row and returns the original
// error. The status write uses a fresh context so a canceled pipeline context
// cannot also lose the failure record.
func (w *Worker) fail(ctx context.Context, jobID string, cause error) error {
	w.logger.Error().Err(cause).Str("job_id", jobID).Msg("worker: job failed")
	writeCtx := ctx
	if writeCtx.Err() != nil {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if _, err := w.sql.Exec(writeCtx, sqlinline.QFailLesson, jobID, cause.Error()); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: persist failure failed")
	}
	return cause
}

// fetchImageDataURI downloads the source image under a bounded timeout and
// encodes it as a data URI tagged with the observed content type.
func (w *Worker) fetchImageDataURI(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "image/*")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = defaultContentType
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
