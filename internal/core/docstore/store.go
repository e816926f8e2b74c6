package docstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

// Key layout in the hot tier. The aggregate vector and its metadata live
// under separate keys derived from the document id; per-chunk records are
// kept for traceability only.
const (
	embeddingKeyPrefix = "embedding:"
	metadataKeyPrefix  = "metadata:"
	chunkKeyPrefix     = "doc_chunk:"
)

func VectorKey(docID string) string   { return embeddingKeyPrefix + docID }
func MetadataKey(docID string) string { return metadataKeyPrefix + docID }

func chunkKey(docID string, idx int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix, docID, idx)
}

// PartialDeleteError reports a delete that removed some of a document's
// keys but not all of them, so callers can tell a clean miss from a
// half-deleted document.
type PartialDeleteError struct {
	DocumentID string
	FailedKey  string
	Err        error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete of %s: key %s: %v", e.DocumentID, e.FailedKey, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }

// Indexer is an optional secondary index kept in step with the store
// (e.g. a pgvector table). Index/Remove failures never fail the primary
// write; the hot tier stays the source the chat path reads from.
type Indexer interface {
	Index(ctx context.Context, docID string, vector []float32, meta models.DocumentMetadata) error
	Remove(ctx context.Context, docID string) error
}

// Store persists document-level vectors and metadata in the hot tier
// under a shared TTL policy.
type Store struct {
	cache core.Cache
	ttl   time.Duration
	index Indexer // may be nil
}

func NewStore(cache core.Cache, ttl time.Duration, index Indexer) *Store {
	return &Store{cache: cache, ttl: ttl, index: index}
}

// Store writes the vector and metadata entries for docID, both with the
// store's TTL. The metadata entry is written second; a failure after the
// vector write is reported as a storage error so the caller knows the
// pair may be incomplete.
func (s *Store) Store(ctx context.Context, docID string, vector []float32, meta models.DocumentMetadata) error {
	if err := s.cache.Set(ctx, VectorKey(docID), vector, s.ttl); err != nil {
		return fmt.Errorf("%w: vector for %s: %v", core.ErrStorageWrite, docID, err)
	}
	if err := s.cache.Set(ctx, MetadataKey(docID), meta, s.ttl); err != nil {
		return fmt.Errorf("%w: metadata for %s: %v", core.ErrStorageWrite, docID, err)
	}
	if s.index != nil {
		if err := s.index.Index(ctx, docID, vector, meta); err != nil {
			log.Printf("secondary index write failed for %s: %v", docID, err)
		}
	}
	return nil
}

// StoreChunks persists per-chunk traceability records next to the
// aggregate. Chunks are not separately searchable.
func (s *Store) StoreChunks(ctx context.Context, docID string, chunks []models.ChunkRecord) error {
	for _, ch := range chunks {
		if err := s.cache.Set(ctx, chunkKey(docID, ch.Index), ch, s.ttl); err != nil {
			return fmt.Errorf("%w: chunk %d for %s: %v", core.ErrStorageWrite, ch.Index, docID, err)
		}
	}
	return nil
}

// Vector returns the aggregate embedding for docID.
func (s *Store) Vector(ctx context.Context, docID string) ([]float32, bool, error) {
	var vec []float32
	ok, err := s.cache.Get(ctx, VectorKey(docID), &vec)
	return vec, ok, err
}

// Metadata returns the stored metadata for docID.
func (s *Store) Metadata(ctx context.Context, docID string) (models.DocumentMetadata, bool, error) {
	var meta models.DocumentMetadata
	ok, err := s.cache.Get(ctx, MetadataKey(docID), &meta)
	return meta, ok, err
}

// ListIDs lists the ids of all live documents, derived from the metadata
// keys so embedding-cache entries (which share the "embedding:" prefix)
// are never picked up.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := s.cache.Keys(ctx, metadataKeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, metadataKeyPrefix))
	}
	return ids, nil
}

// Delete removes both primary keys and any chunk records. A failure
// after the vector key is gone surfaces as a PartialDeleteError.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if _, err := s.cache.Delete(ctx, VectorKey(docID)); err != nil {
		return fmt.Errorf("delete vector for %s: %w", docID, err)
	}
	if _, err := s.cache.Delete(ctx, MetadataKey(docID)); err != nil {
		return &PartialDeleteError{DocumentID: docID, FailedKey: MetadataKey(docID), Err: err}
	}

	chunkKeys, err := s.cache.Keys(ctx, chunkKeyPrefix+docID+":")
	if err == nil {
		for _, k := range chunkKeys {
			if _, err := s.cache.Delete(ctx, k); err != nil {
				log.Printf("failed to delete chunk record %s: %v", k, err)
			}
		}
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, docID); err != nil {
			log.Printf("secondary index delete failed for %s: %v", docID, err)
		}
	}
	return nil
}
