package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/analysis"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/providers/vision"
	"server/internal/sqlinline"
)

const jobPollInterval = 2 * time.Second

var errNoJobAvailable = errors.New("no job available")

// jobWorker re-runs pending jobs whose fire-and-forget trigger was lost. It
// claims one stale row at a time and executes the same pipeline the process
// endpoint runs.
type jobWorker struct {
	ctx             context.Context
	runner          *infra.SQLRunner
	pipeline        *analysis.Worker
	redispatchAfter time.Duration
	logger          infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	visionAPIKey := strings.TrimSpace(cfg.VisionAPIKey)
	if visionAPIKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.VisionAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load vision api key from store")
		} else {
			visionAPIKey = keyFromStore
		}
	}
	visionClient, err := vision.NewClient(vision.Options{
		APIKey:     visionAPIKey,
		Model:      cfg.VisionModel,
		BaseURL:    cfg.VisionBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.InferenceTimeout},
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure vision client")
	}

	worker := &jobWorker{
		ctx:             ctx,
		runner:          runner,
		pipeline:        analysis.NewWorker(runner, visionClient, &http.Client{Timeout: cfg.FetchTimeout}, cfg.FetchTimeout, logger),
		redispatchAfter: cfg.RedispatchAfter,
		logger:          logger,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		req, err := w.claimJob()
		if err != nil {
			if !errors.Is(err, errNoJobAvailable) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-time.After(jobPollInterval):
			}
			continue
		}

		w.logger.Info().Str("job_id", req.JobID).Msg("worker: re-running stale job")
		if err := w.pipeline.Run(w.ctx, req); err != nil {
			w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("worker: job failed")
		}
	}
}

func (w *jobWorker) claimJob() (analysis.Request, error) {
	cutoff := time.Now().Add(-w.redispatchAfter)
	row := w.runner.QueryRow(w.ctx, sqlinline.QClaimStalePendingLesson, cutoff)
	var req analysis.Request
	var userID string
	if err := row.Scan(&req.JobID, &userID, &req.ImageURL, &req.TargetLanguage, &req.NativeLanguage, &req.Difficulty); err != nil {
		if infra.IsNoRows(err) {
			return analysis.Request{}, errNoJobAvailable
		}
		return analysis.Request{}, err
	}
	return req, nil
}
