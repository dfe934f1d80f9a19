package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/soepipeline/internal/config"
	"github.com/local/soepipeline/internal/docai"
	"github.com/local/soepipeline/internal/gridscan"
	"github.com/local/soepipeline/internal/logger"
	"github.com/local/soepipeline/internal/metrics"
	"github.com/local/soepipeline/internal/pipeline"
	"github.com/local/soepipeline/internal/statuscheck"
	"github.com/local/soepipeline/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	if err := logger.Init(cfg.Logging, cfg.Axiom); err != nil {
		log.Error().Err(err).Msg("logger init degraded")
	}
	defer logger.Close()

	metrics.Init()

	docs := docai.New(docai.Config{
		APIKey:      cfg.DocService.APIKey,
		BaseURL:     cfg.DocService.BaseURL,
		Model:       cfg.DocService.Model,
		Timeout:     cfg.DocService.Timeout,
		MaxInflight: cfg.DocService.MaxInflight,
	})
	if !docs.Configured() {
		log.Warn().Msg("OPENAI_API_KEY not set; runs will return uploadError only")
	}

	// Run-status store is optional. Without Redis every run still works,
	// only /progress lookups come back empty.
	var runs store.Runs = store.NoopRuns{}
	var pinger statuscheck.RedisPinger
	if cfg.Store.RedisURL != "" {
		rr, err := store.NewRedisRuns(cfg.Store.RedisURL, cfg.Store.StatusTTL)
		if err != nil {
			log.Error().Err(err).Msg("redis unavailable, run status disabled")
		} else {
			runs = rr
			pinger = rr
		}
	}
	defer runs.Close()

	p := pipeline.New(pipeline.Dependencies{
		Docs:        docs,
		Runs:        runs,
		Scanner:     gridscan.New(),
		Defaults:    cfg.Stages,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	})

	mux := http.NewServeMux()
	p.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	checker := statuscheck.New(statuscheck.Options{
		Redis:      pinger,
		S3Bucket:   cfg.S3.Bucket,
		APIKey:     cfg.DocService.APIKey,
		APIBaseURL: cfg.DocService.BaseURL,
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checker.Summary(r.Context()))
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}
