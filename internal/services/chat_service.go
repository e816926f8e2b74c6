package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/conversation"
	"github.com/vea-digital/asistente/internal/core/docstore"
	"github.com/vea-digital/asistente/internal/core/ingest"
	"github.com/vea-digital/asistente/internal/core/parsers"
	"github.com/vea-digital/asistente/internal/models"
)

// historyTurns is how many recent messages go into the model prompt.
const historyTurns = 10

// similarDocs is how many retrieved documents feed the system context.
const similarDocs = 3

const systemPrompt = "You are a helpful and friendly assistant for WhatsApp. Respond clearly and concisely."

// fallbackMessage is sent whenever a reply cannot be generated; the user
// never sees an error.
const fallbackMessage = "¡Hola hermano(a)! ¿En qué puedo ayudarte? Actualmente puedo ofrecerte información sobre nuestros próximos eventos, " +
	"cómo donar, o bien el contacto de alguno de nuestros líderes de ministerio. ¡Bendiciones!"

const notFoundMessage = "No encontré la información solicitada para tu consulta."

// Intent template names, pre-approved on the WhatsApp side.
const (
	templateDonativo = "donativo_info"
	templateEvento   = "evento_info"
	templateContacto = "contacto_info"
)

// ChatService runs one retrieval-augmented chat turn per incoming
// message: embed the message, retrieve similar documents, prompt the
// model with recent history, send the reply, persist the exchange.
type ChatService struct {
	embedder      *ingest.EmbeddingManager
	searcher      docstore.Searcher
	llm           core.LLMProvider
	messenger     core.Messenger
	conversations *conversation.Store
}

func NewChatService(embedder *ingest.EmbeddingManager, searcher docstore.Searcher, llm core.LLMProvider, messenger core.Messenger, conversations *conversation.Store) *ChatService {
	return &ChatService{
		embedder:      embedder,
		searcher:      searcher,
		llm:           llm,
		messenger:     messenger,
		conversations: conversations,
	}
}

func conversationID(fromNumber string) string {
	return "wa_" + fromNumber
}

// HandleIncoming processes one incoming WhatsApp message end to end.
// Generation failures degrade to the fallback message; only a send
// failure is returned, since without a sent reply there is no exchange
// to record.
func (s *ChatService) HandleIncoming(ctx context.Context, fromNumber, content, incomingID, timestamp string) error {
	if fromNumber == "" || content == "" {
		log.Println("chat: missing sender or content, dropping message")
		return nil
	}

	// Recognized category requests get the structured template flow
	// instead of a free-form model reply.
	if category := DetectCategory(content); category != "" {
		return s.HandleIntent(ctx, fromNumber, content, category, "")
	}

	reply, err := s.generateReply(ctx, fromNumber, content)
	if err != nil {
		log.Printf("chat: reply generation failed for %s: %v", fromNumber, err)
		reply = fallbackMessage
	}

	sentID, err := s.messenger.SendText(ctx, fromNumber, reply)
	if err != nil {
		return fmt.Errorf("send reply to %s: %w", fromNumber, err)
	}

	if timestamp == "" {
		timestamp = models.NowISO()
	}
	userMsg := models.Message{
		Role:      "user",
		Content:   content,
		Timestamp: timestamp,
		MessageID: incomingID,
		Direction: "incoming",
	}
	botMsg := models.Message{
		Role:      "assistant",
		Content:   reply,
		Timestamp: models.NowISO(),
		MessageID: sentID,
		Direction: "outgoing",
	}
	if err := s.conversations.AppendExchange(ctx, conversationID(fromNumber), userMsg, botMsg); err != nil {
		log.Printf("chat: failed to record exchange for %s: %v", fromNumber, err)
	}
	return nil
}

func (s *ChatService) generateReply(ctx context.Context, fromNumber, content string) (string, error) {
	queryVec, err := s.embedder.GetOrCreate(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	system := systemPrompt
	matches, err := s.searcher.FindSimilar(ctx, queryVec, similarDocs)
	if err != nil {
		log.Printf("chat: retrieval failed for %s, answering without context: %v", fromNumber, err)
	} else if len(matches) > 0 {
		var sb strings.Builder
		for _, m := range matches {
			sb.WriteString(m.Metadata.Text)
			sb.WriteString("\n---\n")
		}
		system += "\n\nRelevant context for this conversation:\n" + sb.String()
	}

	history := s.conversations.Load(ctx, conversationID(fromNumber))
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	turns := make([]core.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, core.ChatTurn{Role: m.Role, Content: m.Content})
	}

	reply, err := s.llm.GenerateChat(ctx, system, turns, content)
	if err != nil {
		return "", fmt.Errorf("generate chat: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("empty model response")
	}
	return reply, nil
}

// HandleIntent answers a recognized category request (donativo, evento,
// contacto) by retrieving the closest document of that category and
// sending the matching template with its parsed fields. Missing or
// incomplete data falls back to a plain not-found message.
func (s *ChatService) HandleIntent(ctx context.Context, fromNumber, content, category, customerName string) error {
	if customerName == "" {
		customerName = "hermano(a)"
	}
	fields, err := s.findFields(ctx, content, category)
	if err != nil {
		log.Printf("chat: field lookup failed for %s intent: %v", category, err)
	}

	params := map[string]string{"customer_name": customerName}
	for k, v := range fields {
		params[k] = v
	}

	if fields == nil || !validParams(params) {
		if _, err := s.messenger.SendText(ctx, fromNumber, notFoundMessage); err != nil {
			return fmt.Errorf("send not-found to %s: %w", fromNumber, err)
		}
		return nil
	}

	template := templateForCategory(category)
	if _, err := s.messenger.SendTemplate(ctx, fromNumber, template, params); err != nil {
		return fmt.Errorf("send %s template to %s: %w", category, fromNumber, err)
	}
	return nil
}

// findFields embeds the request and retrieves the closest document of
// the requested category. The structured fields come from the metadata
// stored at ingestion; the flattened search text has lost the line
// structure the parsers need, so it is never re-parsed here.
func (s *ChatService) findFields(ctx context.Context, content, category string) (map[string]string, error) {
	queryVec, err := s.embedder.GetOrCreate(ctx, content)
	if err != nil {
		return nil, err
	}
	matches, err := s.searcher.FindSimilar(ctx, queryVec, similarDocs)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.Metadata.Category == category && len(m.Metadata.Fields) > 0 {
			return m.Metadata.Fields, nil
		}
	}
	return nil, nil
}

var categoryKeywords = map[string][]string{
	parsers.CategoryDonativo: {"donar", "donativo", "donación", "diezmo", "ofrenda"},
	parsers.CategoryEvento:   {"evento", "congreso", "reunión", "servicio"},
	parsers.CategoryContacto: {"contacto", "ministerio", "líder", "pastor"},
}

// DetectCategory recognizes a category request from keywords in the
// message; "" means the message is free-form conversation.
func DetectCategory(content string) string {
	lower := strings.ToLower(content)
	for _, category := range []string{parsers.CategoryDonativo, parsers.CategoryEvento, parsers.CategoryContacto} {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return ""
}

func templateForCategory(category string) string {
	switch category {
	case parsers.CategoryEvento:
		return templateEvento
	case parsers.CategoryContacto:
		return templateContacto
	}
	return templateDonativo
}

// validParams reports whether every template parameter is non-blank.
func validParams(params map[string]string) bool {
	for _, v := range params {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
