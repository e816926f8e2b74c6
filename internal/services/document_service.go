package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/docstore"
	"github.com/vea-digital/asistente/internal/core/ingest"
	"github.com/vea-digital/asistente/internal/models"
)

// DocumentService is the management surface over the knowledge base:
// upload + enqueue for ingestion, lookup, and full removal.
type DocumentService struct {
	obj        core.ObjectStore
	store      *docstore.Store
	dispatcher *ingest.Dispatcher
}

func NewDocumentService(obj core.ObjectStore, store *docstore.Store, dispatcher *ingest.Dispatcher) *DocumentService {
	return &DocumentService{obj: obj, store: store, dispatcher: dispatcher}
}

// UploadAndEnqueue stores the raw document and schedules its ingestion.
func (s *DocumentService) UploadAndEnqueue(ctx context.Context, filename, contentType, category string, data []byte) (string, error) {
	key := objectKey(category, filename)

	url, err := s.obj.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	if err := s.dispatcher.Enqueue(ctx, models.TriggerPayload{
		BlobName:    key,
		BlobURL:     url,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		Category:    category,
	}); err != nil {
		return "", err
	}
	return key, nil
}

// Enqueue schedules an already-stored object for ingestion.
func (s *DocumentService) Enqueue(ctx context.Context, payload models.TriggerPayload) error {
	return s.dispatcher.Enqueue(ctx, payload)
}

// Get returns the stored metadata for a processed document.
func (s *DocumentService) Get(ctx context.Context, docID string) (models.DocumentMetadata, bool, error) {
	return s.store.Metadata(ctx, docID)
}

// List returns the ids of every processed document.
func (s *DocumentService) List(ctx context.Context) ([]string, error) {
	return s.store.ListIDs(ctx)
}

// Delete removes a document's derived records and, when the source key
// is known, the source object itself.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	meta, ok, err := s.store.Metadata(ctx, docID)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", docID, err)
	}

	if err := s.store.Delete(ctx, docID); err != nil {
		return err
	}

	if ok && meta.Filename != "" {
		if err := s.obj.Delete(ctx, meta.Filename); err != nil {
			return fmt.Errorf("delete source object %s: %w", meta.Filename, err)
		}
	}
	return nil
}

// Backfill enqueues every stored document the idempotency gate lets
// through.
func (s *DocumentService) Backfill(ctx context.Context, concurrency int) (int, error) {
	return s.dispatcher.Backfill(ctx, concurrency)
}

// objectKey creates a consistent storage key layout, grouped by
// category when one is given.
func objectKey(category, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	if category == "" {
		return path.Join("documents", filename)
	}
	return path.Join("documents", category, filename)
}
