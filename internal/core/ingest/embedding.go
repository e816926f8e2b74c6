package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/vea-digital/asistente/internal/core"
)

// EmbeddedChunk pairs a chunk with its computed vector.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// EmbeddingManager fronts the embedding provider with a content-addressed
// TTL cache. Hot-tier failures degrade to provider-only behavior; they are
// logged, never fatal.
type EmbeddingManager struct {
	cache    core.Cache
	provider core.EmbeddingProvider
	ttl      time.Duration
	useCache bool
}

func NewEmbeddingManager(cache core.Cache, provider core.EmbeddingProvider, ttl time.Duration, useCache bool) *EmbeddingManager {
	return &EmbeddingManager{cache: cache, provider: provider, ttl: ttl, useCache: useCache}
}

// EmbeddingCacheKey is the content-addressed key for a text blob.
func EmbeddingCacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// GetOrCreate returns the embedding for text, from cache when possible.
// On a miss the provider is called and, on success, the result cached
// under the content digest. Provider failures are not cached.
func (m *EmbeddingManager) GetOrCreate(ctx context.Context, text string) ([]float32, error) {
	if Normalize(text) == "" {
		return nil, fmt.Errorf("%w: empty text", core.ErrEmbeddingFailed)
	}

	key := EmbeddingCacheKey(text)
	if m.useCache {
		var cached []float32
		ok, err := m.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Printf("embedding cache read failed, continuing without cache: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	vecs, err := m.provider.EmbedTexts(ctx, []string{text})
	if err != nil || len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrEmbeddingFailed, err)
	}
	vec := vecs[0]

	if m.useCache {
		if err := m.cache.Set(ctx, key, vec, m.ttl); err != nil {
			log.Printf("embedding cache write failed: %v", err)
		}
	}
	return vec, nil
}

// EmbedChunks embeds each chunk independently. A failure on one chunk is
// logged and skipped; the batch fails only when every chunk fails.
func (m *EmbeddingManager) EmbedChunks(ctx context.Context, chunks []Chunk) ([]EmbeddedChunk, error) {
	var out []EmbeddedChunk
	for _, ch := range chunks {
		vec, err := m.GetOrCreate(ctx, ch.Text)
		if err != nil {
			log.Printf("skipping chunk %d: %v", ch.Index, err)
			continue
		}
		out = append(out, EmbeddedChunk{Chunk: ch, Embedding: vec})
	}
	if len(out) == 0 {
		return nil, core.ErrNoEmbeddingsGenerated
	}
	return out, nil
}

// Aggregate computes the component-wise arithmetic mean of the chunk
// vectors. All inputs share the provider's dimensionality; aggregating a
// single vector returns it unchanged.
func Aggregate(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	avg := make([]float32, dim)
	for _, v := range vectors {
		for d := 0; d < dim && d < len(v); d++ {
			avg[d] += v[d]
		}
	}
	n := float32(len(vectors))
	for d := range avg {
		avg[d] /= n
	}
	return avg
}
