package docstore

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/vea-digital/asistente/internal/models"
)

// Match is one similarity-search result.
type Match struct {
	DocumentID string
	Score      float64 // cosine similarity, higher is closer
	Metadata   models.DocumentMetadata
}

// Searcher finds the documents most similar to a query vector. The chat
// path only depends on this interface, so a real approximate-nearest-
// neighbor index can replace the scan without touching callers.
type Searcher interface {
	FindSimilar(ctx context.Context, query []float32, topK int) ([]Match, error)
}

// CacheSearcher is the built-in searcher: a brute-force cosine scan over
// every live document vector in the hot tier. Fine for the corpus sizes
// this system holds; swap in a real index via the Searcher interface when
// that stops being true.
type CacheSearcher struct {
	store *Store
}

var _ Searcher = (*CacheSearcher)(nil)

func NewCacheSearcher(store *Store) *CacheSearcher {
	return &CacheSearcher{store: store}
}

func (s *CacheSearcher) FindSimilar(ctx context.Context, query []float32, topK int) ([]Match, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, id := range ids {
		vec, ok, err := s.store.Vector(ctx, id)
		if err != nil || !ok {
			if err != nil {
				log.Printf("search: skipping %s: %v", id, err)
			}
			continue
		}
		score := Cosine(query, vec)
		meta, _, err := s.store.Metadata(ctx, id)
		if err != nil {
			log.Printf("search: metadata read failed for %s: %v", id, err)
			continue
		}
		matches = append(matches, Match{DocumentID: id, Score: score, Metadata: meta})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
