package core

import "errors"

// Error taxonomy for the ingestion pipeline and the chat path. Component
// boundaries wrap provider failures with one of these sentinels so callers
// can classify with errors.Is and decide whether to retry or drop.
var (
	// ErrUnsupportedFormat means the extension/content type is not
	// recognized. Fatal for the document, not retryable.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed wraps provider errors during OCR/PDF/Word
	// parsing. Retryable at the trigger boundary.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrNoTextExtracted means extraction succeeded but yielded nothing.
	ErrNoTextExtracted = errors.New("no text extracted")

	// ErrEmbeddingFailed is a per-chunk embedding failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrNoEmbeddingsGenerated means every chunk failed to embed.
	ErrNoEmbeddingsGenerated = errors.New("no embeddings generated")

	// ErrStorageWrite marks a document-store or metadata writeback failure.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrObjectNotFound means the durable tier has no object under the
	// requested key. Callers that treat a miss as normal (conversation
	// archive reads) classify with errors.Is instead of parsing messages.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCacheUnavailable marks a hot-tier failure; callers degrade to
	// no-cache behavior instead of propagating it.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrInvalidConfiguration is returned at construction time for
	// settings that would break an invariant (e.g. overlap >= chunk size).
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
