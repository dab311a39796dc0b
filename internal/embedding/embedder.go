package embedding

import (
	"context"

	"github.com/rs/zerolog"
)

// CachedEmbedder serves embeddings cache-first, calling the provider only on
// misses. Provider failures are returned to the caller and never cached, so
// a later call retries. Cache failures degrade to a miss rather than failing
// the embed.
type CachedEmbedder struct {
	provider Provider
	cache    *Cache
	log      zerolog.Logger
}

// NewCachedEmbedder wires a provider to its durable cache.
func NewCachedEmbedder(provider Provider, cache *Cache, log zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		provider: provider,
		cache:    cache,
		log:      log.With().Str("component", "embedder").Logger(),
	}
}

// Embed returns the vector for text, from the cache when possible.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, ok, err := e.cache.Get(ctx, text)
	if err != nil {
		e.log.Warn().Err(err).Msg("embedding cache read failed, treating as miss")
	}
	if ok {
		return vec, nil
	}
	e.log.Debug().Int("text_len", len(text)).Msg("embedding cache miss")

	vec, err = e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(ctx, text, vec); err != nil {
		e.log.Warn().Err(err).Msg("embedding cache write failed")
	}
	return vec, nil
}
