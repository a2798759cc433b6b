package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"importrag/config"
	"importrag/internal/adapter/cache"
	"importrag/internal/adapter/chunker"
	"importrag/internal/adapter/embedding"
	"importrag/internal/adapter/fs"
	"importrag/internal/adapter/pdf"
	"importrag/internal/adapter/store"
	"importrag/internal/api"
	"importrag/internal/port"
	"importrag/internal/usecase"
	applog "importrag/internal/platform/log"
)

// app holds the engines built from configuration for one command invocation.
type app struct {
	cfg        *config.Config
	engines    api.Engines
	walker     *fs.Walker
	collection *store.BoltCollection
}

// buildApp wires the sparse engine, and the dense engine when withDense is set.
func buildApp(cfg *config.Config, root string, withDense bool) (*app, error) {
	walker := fs.NewWalker(cfg.KnowledgeBase.Includes, cfg.KnowledgeBase.Excludes)

	sparse := usecase.NewSparseEngine(chunker.NewWindowChunker(cfg.Sparse.ChunkSize, cfg.Sparse.ChunkOverlap))
	a := &app{
		cfg:    cfg,
		walker: walker,
		engines: api.Engines{
			Knowledge:      usecase.NewKnowledgeBase(cfg.KnowledgeBaseDir(root), walker, sparse),
			Sparse:         sparse,
			SparseRetrieve: usecase.NewRetrieveUseCase(sparse, newQueryCache(cfg, sparse.OnChange), cfg.Retrieve.MinScore),
		},
	}

	if !withDense {
		return a, nil
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dbPath := cfg.CollectionDBPath(root)
	if err := config.EnsureParentDir(dbPath); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	col, err := store.OpenCollection(dbPath, embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	cleared, reason, err := col.Prepare(cfg)
	if err != nil {
		col.Close()
		return nil, fmt.Errorf("failed to check collection schema: %w", err)
	}
	if cleared {
		applog.Warn("collection cleared, re-ingest documents", "reason", reason, "path", dbPath)
	}

	dense := usecase.NewDenseEngine(
		col,
		embedder,
		pdf.NewExtractor(filepath.Join(filepath.Dir(dbPath), "tmp")),
		chunker.NewWindowChunker(cfg.Dense.ChunkSize, cfg.Dense.ChunkOverlap),
		usecase.DenseOptions{ReplaceStale: cfg.Dense.ReplaceStale},
	)

	a.collection = col
	a.engines.Dense = dense
	a.engines.DenseRetrieve = usecase.NewRetrieveUseCase(dense, newQueryCache(cfg, dense.OnChange), cfg.Retrieve.MinScore)
	return a, nil
}

func (a *app) Close() {
	if a.collection != nil {
		if err := a.collection.Close(); err != nil {
			applog.Warn("failed to close collection", "error", err)
		}
	}
}

// newQueryCache returns nil when caching is disabled; subscribe receives the invalidation hook.
func newQueryCache(cfg *config.Config, subscribe func(func())) *cache.QueryCache {
	if cfg.Retrieve.CacheSize <= 0 {
		return nil
	}
	qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSeconds)*time.Second)
	subscribe(qc.Invalidate)
	return qc
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "openai":
		baseURL := e.BaseURL
		if baseURL == "" || baseURL == config.DefaultConfig().Embedding.BaseURL {
			baseURL = "https://api.openai.com/v1"
		}
		emb, err := embedding.NewOpenAICompatibleEmbedder(e.APIKeyEnv, e.Model, baseURL)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(e.Dimension).WithBatchSize(e.BatchSize), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL).WithDimension(e.Dimension).WithBatchSize(e.BatchSize), nil
	case "mock":
		return embedding.NewMockEmbedder(e.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}
