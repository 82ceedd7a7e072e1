package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docs-copilot/internal/adapter/docs_http"
	"docs-copilot/internal/adapter/llmsvc"
	"docs-copilot/internal/adapter/repository"
	"docs-copilot/internal/adapter/searchindex"
	"docs-copilot/internal/infra"
	"docs-copilot/internal/infra/config"
	"docs-copilot/internal/infra/httpclient"
	"docs-copilot/internal/infra/logger"
	"docs-copilot/internal/usecase"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.New()
	slog.SetDefault(log)

	dbPool, err := infra.NewPostgresDB(context.Background(), cfg.DSN()+"?sslmode=disable")
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	embedder := llmsvc.NewEmbedder(cfg.LLMServerURL, cfg.EmbeddingModel, cfg.RetrieverTimeoutSecs, log)
	generator := llmsvc.NewGenerator(cfg.LLMServerURL, cfg.GenerationMdl, log)
	reranker := llmsvc.NewRerankerClient(
		cfg.RerankerURL,
		cfg.RerankerModel,
		time.Duration(cfg.RerankTimeoutSeconds)*time.Second,
		log,
		httpclient.NewPooledClient(time.Duration(cfg.RerankTimeoutSeconds)*time.Second),
	)

	denseRetriever := repository.NewDenseRetriever(dbPool, embedder, log)
	sparseRetriever := searchindex.NewClient(cfg.SearchIndexURL, cfg.SearchTimeoutSeconds, log)
	docRepo := repository.NewDocumentRepository(dbPool)

	askUsecase, err := usecase.NewAskUsecase(
		denseRetriever,
		sparseRetriever,
		reranker,
		generator,
		usecase.PipelineConfig{
			RRFK:             cfg.RRFK,
			SearchLimit:      cfg.SearchLimit,
			FusionTopK:       cfg.FusionTopK,
			RerankTopN:       cfg.RerankTopN,
			RerankEnabled:    cfg.RerankEnabled,
			RetrieverTimeout: time.Duration(cfg.RetrieverTimeoutSecs) * time.Second,
			RerankTimeout:    time.Duration(cfg.RerankTimeoutSeconds) * time.Second,
			MaxTokens:        cfg.GenerationMaxTokens,
			ContextMaxChars:  cfg.ContextMaxChars,
			CacheSize:        cfg.AnswerCacheSize,
			CacheTTL:         time.Duration(cfg.AnswerCacheTTLMinutes) * time.Minute,
		},
		log,
	)
	if err != nil {
		log.Error("failed to build ask usecase", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(docs_http.RequestTracking(log))

	handler := docs_http.NewHandler(askUsecase, docRepo, dbPool, log)
	askLimiter := docs_http.RateLimit(cfg.AskRateLimitRPS, cfg.AskRateLimitBurst)
	docs_http.RegisterRoutes(e, handler, askLimiter)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
