package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

// conversationDocument is the durable JSON shape, one object per
// conversation under conversations/<id>.json.
type conversationDocument struct {
	ConversationID string           `json:"conversation_id"`
	UpdatedAt      string           `json:"updated_at"`
	Messages       []models.Message `json:"messages"`
}

// ObjectArchive persists conversation history in the object store.
type ObjectArchive struct {
	obj core.ObjectStore
}

var _ Archive = (*ObjectArchive)(nil)

func NewObjectArchive(obj core.ObjectStore) *ObjectArchive {
	return &ObjectArchive{obj: obj}
}

func archiveKey(conversationID string) string {
	return "conversations/" + conversationID + ".json"
}

func (a *ObjectArchive) SaveConversation(ctx context.Context, conversationID string, messages []models.Message) error {
	doc := conversationDocument{
		ConversationID: conversationID,
		UpdatedAt:      models.NowISO(),
		Messages:       messages,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("serialize conversation %s: %w", conversationID, err)
	}
	if _, err := a.obj.Upload(ctx, archiveKey(conversationID), data, "application/json"); err != nil {
		return fmt.Errorf("save conversation %s: %w", conversationID, err)
	}
	return nil
}

func (a *ObjectArchive) LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	data, err := a.obj.Download(ctx, archiveKey(conversationID))
	if err != nil {
		// A conversation that has never been saved is a normal miss.
		if errors.Is(err, core.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var doc conversationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", conversationID, err)
	}
	return doc.Messages, nil
}
