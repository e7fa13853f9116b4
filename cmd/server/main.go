package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/keyword-orchestrator/internal/api"
	"github.com/example/keyword-orchestrator/internal/config"
	"github.com/example/keyword-orchestrator/internal/orchestrator"
	"github.com/example/keyword-orchestrator/internal/pipeline"
	"github.com/example/keyword-orchestrator/internal/providers/dataforseo"
	"github.com/example/keyword-orchestrator/internal/providers/llm"
	"github.com/example/keyword-orchestrator/internal/ratelimit"
	"github.com/example/keyword-orchestrator/internal/store"
	"github.com/example/keyword-orchestrator/internal/vectorstore"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Error("init store", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.DataForSEO.RatePerMinute)
	fetcher := dataforseo.New(cfg.DataForSEO.Login, cfg.DataForSEO.Password, cfg.DataForSEO.BaseURL, limiter)
	index := vectorstore.NewFileStore(cfg.VectorStore.Path, logger)

	runner := pipeline.NewRunner(st, llm.New, fetcher, index, logger)
	orch := orchestrator.New(st, runner, logger)

	mux := http.NewServeMux()
	api.NewServer(orch, logger).RegisterRoutes(mux)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.CORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server listening", "addr", addr, "storageDir", cfg.Storage.Dir)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
