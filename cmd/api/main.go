package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/analysis"
	httpapi "server/internal/http"
	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/providers/vision"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	media := storage.NewMediaManager(fileStore, cfg.PublicDomain, logger)

	visionAPIKey := strings.TrimSpace(cfg.VisionAPIKey)
	if visionAPIKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.VisionAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load vision api key from store")
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
		logger.Fatal().Err(err).Msg("failed to configure vision client")
	}

	worker := analysis.NewWorker(runner, visionClient, &http.Client{Timeout: cfg.FetchTimeout}, cfg.FetchTimeout, logger)
	dispatcher := analysis.NewDispatcher(cfg.SelfBaseURL, cfg.InternalAPIKey, nil, logger)

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		SQL:        runner,
		Config:     cfg,
		Media:      media,
		Worker:     worker,
		Dispatcher: dispatcher,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		StaticDir:       storagePath,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
