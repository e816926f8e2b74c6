package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/docstore"
	"github.com/vea-digital/asistente/internal/core/parsers"
	"github.com/vea-digital/asistente/internal/models"
)

// TextExtractor is the slice of the format extractor the pipeline needs.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// Provenance metadata written back to the source object after a
// successful run; the dispatcher reads the same keys as its idempotency
// gate before triggering a run.
const (
	metaProcessed           = "processed"
	metaDocumentID          = "document_id"
	metaChunksCount         = "chunks_count"
	metaEmbeddingsGenerated = "embeddings_generated"
	metaProcessedTimestamp  = "processed_timestamp"
)

// Pipeline is one document's path from raw bytes to a searchable vector:
// download, extract, chunk, embed, aggregate, persist, mark processed.
// Every invocation is an isolated unit of work with no shared state.
type Pipeline struct {
	obj       core.ObjectStore
	extractor TextExtractor
	chunker   *Chunker
	embedder  *EmbeddingManager
	store     *docstore.Store
	ids       IDStrategy
}

func NewPipeline(obj core.ObjectStore, extractor TextExtractor, chunker *Chunker, embedder *EmbeddingManager, store *docstore.Store, ids IDStrategy) *Pipeline {
	if ids == nil {
		ids = HashID
	}
	return &Pipeline{obj: obj, extractor: extractor, chunker: chunker, embedder: embedder, store: store, ids: ids}
}

// ProcessOne ingests a single document. The outward contract is one
// error (or nil) per document; the trigger boundary decides whether to
// retry, dead-letter, or drop.
func (p *Pipeline) ProcessOne(ctx context.Context, payload models.TriggerPayload) error {
	if payload.BlobName == "" {
		log.Println("ingest: trigger payload missing blob_name, skipping")
		return nil
	}
	blobName := payload.BlobName

	tmp, err := os.CreateTemp("", "ingest-*"+filepath.Ext(blobName))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Printf("ingest: failed to remove temp file %s: %v", tmpPath, err)
		}
	}()

	if err := p.obj.DownloadToFile(ctx, blobName, tmpPath); err != nil {
		return fmt.Errorf("download %s: %w", blobName, err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("read temp file: %w", err)
	}

	docID := p.ids(blobName, data)

	text, err := p.extractor.Extract(ctx, data, blobName, payload.ContentType)
	if err != nil {
		return fmt.Errorf("extract %s: %w", blobName, err)
	}
	if Normalize(text) == "" {
		return fmt.Errorf("%w: %s", core.ErrNoTextExtracted, blobName)
	}

	chunks := p.chunker.Chunk(text)
	log.Printf("ingest: %s extracted %d chars into %d chunks", blobName, len(text), len(chunks))

	embedded, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed %s: %w", blobName, err)
	}
	if len(embedded) < len(chunks) {
		log.Printf("ingest: %s embedded %d of %d chunks", blobName, len(embedded), len(chunks))
	}

	vectors := make([][]float32, len(embedded))
	records := make([]models.ChunkRecord, len(embedded))
	for i, ec := range embedded {
		vectors[i] = ec.Embedding
		records[i] = models.ChunkRecord{
			Index:      ec.Index,
			DocumentID: docID,
			Text:       ec.Text,
			Embedding:  ec.Embedding,
		}
	}
	avg := Aggregate(vectors)

	// Category fields are parsed from the raw text: the line-bounded
	// patterns need the newlines that Normalize collapses away.
	fields := parsers.FieldsForCategory(payload.Category, text)
	if len(fields) == 0 {
		fields = nil
	}

	meta := models.DocumentMetadata{
		DocumentID:  docID,
		Filename:    blobName,
		Category:    payload.Category,
		Text:        Normalize(text),
		Fields:      fields,
		ContentType: payload.ContentType,
		FileSize:    payload.FileSize,
		ChunksCount: len(embedded),
		ProcessedAt: models.NowISO(),
	}

	if err := p.store.Store(ctx, docID, avg, meta); err != nil {
		return err
	}
	if err := p.store.StoreChunks(ctx, docID, records); err != nil {
		log.Printf("ingest: chunk record write failed for %s: %v", docID, err)
	}

	// The writeback is attempted even as the last step; its own failure
	// does not invalidate the completed ingestion.
	p.markProcessed(ctx, blobName, docID, len(embedded))

	log.Printf("ingest: processed %s as %s (%d chunks)", blobName, docID, len(embedded))
	return nil
}

func (p *Pipeline) markProcessed(ctx context.Context, blobName, docID string, chunksCount int) {
	metadata := map[string]string{
		metaProcessed:           "true",
		metaDocumentID:          docID,
		metaChunksCount:         strconv.Itoa(chunksCount),
		metaEmbeddingsGenerated: "true",
		metaProcessedTimestamp:  models.NowISO(),
	}
	if err := p.obj.SetMetadata(ctx, blobName, metadata); err != nil {
		log.Printf("ingest: metadata writeback failed for %s: %v", blobName, err)
	}
}

// AlreadyProcessed reports whether the source object carries the
// provenance flags from a prior run. Used as the idempotency gate at the
// trigger boundary.
func AlreadyProcessed(metadata map[string]string) bool {
	return metadata[metaEmbeddingsGenerated] == "true" || metadata[metaProcessed] == "true"
}
