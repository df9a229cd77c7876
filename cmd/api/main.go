package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apiRatios "ratio_screener/pkg/api/ratios"
	"ratio_screener/pkg/core/cache"
	"ratio_screener/pkg/core/config"
	"ratio_screener/pkg/core/ingest"
	"ratio_screener/pkg/core/logging"
	"ratio_screener/pkg/core/pipeline"
	"ratio_screener/pkg/core/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fallback := logging.Setup("info", "console")
		fallback.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	creds, err := cfg.RequireSession()
	if err != nil {
		logger.Fatal().Err(err).Msg("SESSION_ID and CSRF_TOKEN must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []ingest.Option{ingest.WithLogger(logger)}
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB, "ratio_screener:")
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, search cache disabled")
		} else {
			opts = append(opts, ingest.WithCache(rc))
			logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("search cache enabled")
		}
	}

	client, err := ingest.NewClient(cfg.ClientConfig(), creds, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create screener client")
	}
	runner := pipeline.NewRunner(client, cfg.Pipeline.Workers, logger)

	var runs apiRatios.RunLoader
	if cfg.Database.URL != "" {
		pool, err := store.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open database")
		}
		defer pool.Close()
		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare schema")
		}
		repo := store.NewRatioRepo(pool)
		runner.SetRepository(repo)
		runs = repo
		logger.Info().Msg("run history enabled")
	}

	router := mux.NewRouter()
	apiRatios.NewHandler(runner, runs, logger).Register(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.LoggingHandler(accessLog{logger}, cors(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Int("workers", cfg.Pipeline.Workers).
		Msg("API server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// accessLog feeds Apache-style access lines into zerolog.
type accessLog struct {
	logger zerolog.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	n := len(p)
	for n > 0 && (p[n-1] == '\n' || p[n-1] == '\r') {
		n--
	}
	a.logger.Info().Str("component", "http").Msg(string(p[:n]))
	return len(p), nil
}
