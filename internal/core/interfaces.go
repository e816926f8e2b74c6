package core

import (
	"context"
	"time"
)

// Cache is the hot tier. Values are serialized as JSON; entries carry a
// per-key TTL and expire passively (checked on read, never swept).
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get unmarshals the entry into out and reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string, out any) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Keys lists live keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ObjectStore abstracts the durable tier (S3 or any object storage),
// including the provenance metadata attached to source objects.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Download(ctx context.Context, key string) ([]byte, error)
	DownloadToFile(ctx context.Context, key, path string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)

	Metadata(ctx context.Context, key string) (map[string]string, error)
	SetMetadata(ctx context.Context, key string, metadata map[string]string) error
}

// EmbeddingProvider turns texts into fixed-dimension vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates chat completions.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateChat(ctx context.Context, systemPrompt string, history []ChatTurn, userPrompt string) (string, error)
}

// ChatTurn is the provider-neutral history entry passed to GenerateChat.
type ChatTurn struct {
	Role    string
	Content string
}

// OCRProvider recognizes text in raster images. An empty result is a
// valid outcome, not an error.
type OCRProvider interface {
	ExtractFromImage(ctx context.Context, image []byte) (string, error)
}

// Messenger sends outbound messages through the messaging gateway.
type Messenger interface {
	SendText(ctx context.Context, to, text string) (messageID string, err error)
	SendTemplate(ctx context.Context, to, template string, params map[string]string) (messageID string, err error)
}
