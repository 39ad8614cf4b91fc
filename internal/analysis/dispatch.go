package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// InternalAPIKeyHeader authenticates calls to the background process endpoint.
const InternalAPIKeyHeader = "X-Api-Key"

// Dispatcher triggers background processing out-of-band: it posts the job to
// the internal process endpoint without awaiting the outcome. A lost trigger
// is not retried here; the claim-loop worker picks such jobs up later.
type Dispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   zerolog.Logger
}

// NewDispatcher builds a dispatcher targeting selfBaseURL's process endpoint.
// The default client timeout covers the full background run: the trigger call
// only returns once processing finishes, and cutting it short would be
// indistinguishable from a lost trigger.
func NewDispatcher(selfBaseURL, apiKey string, client *http.Client, logger zerolog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Dispatcher{
		endpoint: strings.TrimRight(selfBaseURL, "/") + "/v1/analyze/process",
		apiKey:   apiKey,
		client:   client,
		logger:   logger,
	}
}

// Dispatch fires the trigger on a fresh goroutine and returns immediately.
// Errors are logged only; the caller has already responded by the time the
// trigger fails.
func (d *Dispatcher) Dispatch(req Request) {
	go func() {
		if err := d.send(req); err != nil {
			d.logger.Error().Err(err).Str("job_id", req.JobID).Msg("dispatch: background trigger failed")
		}
	}()
}

func (d *Dispatcher) send(req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(InternalAPIKeyHeader, d.apiKey)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("process endpoint status %d", resp.StatusCode)
	}
	return nil
}
