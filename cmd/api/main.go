package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/batch"
	"server/internal/generation"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/providers/image"
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
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	credStore := credentials.NewStore(sqlRunner)

	providerRepo := repo.NewProviderRepository(dbpool)
	generationRepo := repo.NewGenerationRepository(dbpool)
	jobRepo := repo.NewJobRepository(dbpool)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init storage")
	}
	refs := storage.NewReferenceResolver(fileStore, cfg.StorageBaseURL)

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout + 10*time.Second}
	registry := image.NewRegistry(httpClient, logger)

	orch := generation.NewOrchestrator(providerRepo, credStore, refs, registry, cfg.UpstreamTimeout, logger)
	manager := batch.NewManager(jobRepo, generationRepo, orch, cfg.BatchRequestDelay, cfg.BatchCompletionEstimate, logger)

	app := &handlers.App{
		Config:      cfg,
		Logger:      logger,
		Fast:        orch,
		Batch:       manager,
		Generations: generationRepo,
	}

	router := httpapi.NewRouter(app)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to drain batch jobs")
	}
	logger.Info().Msg("server stopped")
}
