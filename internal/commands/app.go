package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coindesk/internal/config"
	"github.com/dvloznov/coindesk/internal/embedding"
	"github.com/dvloznov/coindesk/internal/lexical"
	"github.com/dvloznov/coindesk/internal/logger"
	"github.com/dvloznov/coindesk/internal/match"
	"github.com/dvloznov/coindesk/internal/store"
)

// app bundles the pieces every command starts from: configuration, the
// logger and an opened, migrated statement database.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	st  *store.Store
}

func newApp() (*app, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &app{cfg: cfg, log: log, st: store.New(db)}, nil
}

func (a *app) Close() error {
	return a.st.Close()
}

// newMatcher wires the categorization stack: the Gemini embedding provider
// behind its durable cache, the lexical processor and the keyword table.
// The returned cleanup closes the embedding cache.
func (a *app) newMatcher(ctx context.Context) (*match.Engine, func(), error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	provider, err := embedding.NewGeminiProvider(ctx, a.cfg.GeminiAPIKey, a.cfg.EmbeddingModel)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	cache, err := embedding.OpenCache(a.cfg.EmbeddingCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	if n, err := cache.Len(ctx); err == nil {
		a.log.Debug().Int("entries", n).Msg("embedding cache opened")
	}

	table, err := match.LoadKeywordTable(a.cfg.CategoriesPath)
	if err != nil {
		cache.Close()
		return nil, nil, fmt.Errorf("loading keyword table: %w", err)
	}

	embedder := embedding.NewCachedEmbedder(provider, cache, a.log)
	lex := lexical.New(a.cfg.LexiconPath, a.cfg.ThesaurusPath, a.log)
	engine := match.NewEngine(table, embedder, lex, a.cfg.SimilarityThreshold, a.log)

	return engine, func() { cache.Close() }, nil
}
