package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"medassist-ai/internal/config"
	"medassist-ai/internal/handlers"
	apihttp "medassist-ai/internal/http"
	"medassist-ai/internal/llm"
	"medassist-ai/internal/medquery"
	"medassist-ai/internal/pipeline"
	"medassist-ai/internal/rerank"
	"medassist-ai/internal/rerankcache"
	"medassist-ai/internal/retrieval"
	"medassist-ai/internal/search"
	"medassist-ai/internal/storage"
	"medassist-ai/internal/vectorstore"
)

const (
	answerMaxTokens = 1024
	shutdownTimeout = 10 * time.Second
)

// pingFunc adapts a function to the health handler's Pinger interface.
type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	passages := storage.NewPassageRepo(db)

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)

	searcher := search.NewHybridSearcher(embedder, vectorStore, cfg.QdrantCollection, passages)

	var scorer rerank.Scorer = rerank.NewLLMScorer(llmClient)
	healthDeps := map[string]handlers.Pinger{
		"database": pingFunc(db.PingContext),
		"vectors": pingFunc(func(ctx context.Context) error {
			_, err := vectorStore.CollectionExists(ctx, cfg.QdrantCollection)
			return err
		}),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		scorer = rerankcache.New(scorer, redisClient, cfg.RedisScoreTTL)
		healthDeps["cache"] = pingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("relevance score cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RedisScoreTTL)
	}

	engine := pipeline.New(
		medquery.NewAnalyzer(llmClient),
		retrieval.New(searcher, cfg.RetrievalMultiplier, cfg.MaxEvidenceLevel),
		rerank.New(scorer, rerank.Thresholds{
			MinScore:        cfg.RerankMinScore,
			RelaxDelta:      cfg.RerankRelaxDelta,
			FloorScore:      cfg.RerankFloorScore,
			LastResortScore: cfg.RerankLastResortScore,
		}),
		llmClient,
		pipeline.Options{
			MaxCitations: cfg.MaxCitations,
			MaxTokens:    answerMaxTokens,
			Model:        cfg.LLMModelName,
		},
	)

	router := apihttp.NewRouter(logger,
		handlers.NewAskHandler(engine),
		handlers.NewHealthHandler(healthDeps),
	)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
