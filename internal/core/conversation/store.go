package conversation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

// DefaultActiveWindow is how many recent messages the hot tier keeps per
// conversation. The durable tier always retains the full history.
const DefaultActiveWindow = 20

const keyPrefix = "conversation:"

// Archive is the durable tier's view of conversation history.
type Archive interface {
	SaveConversation(ctx context.Context, conversationID string, messages []models.Message) error
	// LoadConversation returns nil (no error) when the conversation has
	// never been saved.
	LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

// Store is the tiered conversation-context store: a TTL-bounded hot tier
// in front of the durable archive, with read-through promotion on a hot
// miss. There is no cross-tier transaction; concurrent writes for the
// same conversation id are last-writer-wins.
type Store struct {
	hot     core.Cache
	archive Archive
	ttl     time.Duration
	window  int
}

func NewStore(hot core.Cache, archive Archive, ttl time.Duration, window int) *Store {
	if window <= 0 {
		window = DefaultActiveWindow
	}
	return &Store{hot: hot, archive: archive, ttl: ttl, window: window}
}

func contextKey(conversationID string) string { return keyPrefix + conversationID }

// Load returns the conversation history. The hot copy, when present, is
// authoritative; on a miss the durable copy is read, its recent window
// promoted into the hot tier, and the full history returned. A miss in
// both tiers yields an empty slice, never an error.
func (s *Store) Load(ctx context.Context, conversationID string) []models.Message {
	var active []models.Message
	ok, err := s.hot.Get(ctx, contextKey(conversationID), &active)
	if err != nil {
		log.Printf("conversation: hot read failed for %s, falling back to durable: %v", conversationID, err)
	} else if ok {
		return active
	}

	full, err := s.archive.LoadConversation(ctx, conversationID)
	if err != nil {
		log.Printf("conversation: durable read failed for %s: %v", conversationID, err)
		return []models.Message{}
	}
	if full == nil {
		return []models.Message{}
	}

	if err := s.hot.Set(ctx, contextKey(conversationID), tail(full, s.window), s.ttl); err != nil {
		log.Printf("conversation: promotion failed for %s: %v", conversationID, err)
	}
	return full
}

// Save writes the full history to the durable tier and mirrors the
// recent window into the hot tier. Each tier's failure is independent;
// the error reflects the hot write, since that is what the next read
// depends on.
func (s *Store) Save(ctx context.Context, conversationID string, messages []models.Message) error {
	if err := s.archive.SaveConversation(ctx, conversationID, messages); err != nil {
		log.Printf("conversation: durable save failed for %s: %v", conversationID, err)
	}
	if err := s.hot.Set(ctx, contextKey(conversationID), tail(messages, s.window), s.ttl); err != nil {
		return fmt.Errorf("hot save for %s: %w", conversationID, err)
	}
	return nil
}

// AppendExchange adds one user turn and one assistant turn to the
// durable history and persists both tiers.
func (s *Store) AppendExchange(ctx context.Context, conversationID string, userMsg, assistantMsg models.Message) error {
	full, err := s.archive.LoadConversation(ctx, conversationID)
	if err != nil {
		log.Printf("conversation: history load failed for %s, starting fresh: %v", conversationID, err)
	}
	full = append(full, userMsg, assistantMsg)
	return s.Save(ctx, conversationID, full)
}

func tail(messages []models.Message, n int) []models.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
