package models

import (
	"time"
)

// Message is one turn of a conversation, as stored in both context tiers.
type Message struct {
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"message_id,omitempty"`
	Direction string `json:"direction,omitempty"` // "incoming" or "outgoing"
}

// TriggerPayload is the queue message that starts one ingestion run.
// BlobName is the only required field; a payload without it is dropped
// with a logged error rather than failing the consumer.
type TriggerPayload struct {
	BlobName    string `json:"blob_name"`
	BlobURL     string `json:"blob_url,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Category    string `json:"category,omitempty"` // donativo | evento | contacto | ""
}

// DocumentMetadata is the structured payload persisted next to a
// document-level embedding. Fields holds the category parser output,
// extracted at ingestion from the raw text before whitespace
// normalization flattens the line structure the parsers rely on.
type DocumentMetadata struct {
	DocumentID  string            `json:"document_id"`
	Filename    string            `json:"filename"`
	Category    string            `json:"category,omitempty"`
	Text        string            `json:"text"`
	Fields      map[string]string `json:"fields,omitempty"`
	ContentType string            `json:"content_type"`
	FileSize    int64             `json:"file_size"`
	ChunksCount int               `json:"chunks_count"`
	ProcessedAt string            `json:"processed_at"`
}

// ChunkRecord is the per-chunk traceability entry kept alongside the
// aggregate vector. Chunks are not separately searchable.
type ChunkRecord struct {
	Index      int       `json:"chunk_index"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
}

// DeliveryStatus records a messaging-gateway delivery report.
type DeliveryStatus struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UpdatedAt string `json:"updated_at"`
}

// NowISO returns the UTC timestamp format used across stored records.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
