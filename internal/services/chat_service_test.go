package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/cache"
	"github.com/vea-digital/asistente/internal/core/conversation"
	"github.com/vea-digital/asistente/internal/core/docstore"
	"github.com/vea-digital/asistente/internal/core/ingest"
	"github.com/vea-digital/asistente/internal/models"
)

type fakeEmbedProvider struct{}

func (fakeEmbedProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeSearcher struct {
	matches []docstore.Match
	err     error
}

func (f *fakeSearcher) FindSimilar(context.Context, []float32, int) ([]docstore.Match, error) {
	return f.matches, f.err
}

type fakeLLM struct {
	reply      string
	err        error
	lastSystem string
	lastTurns  []core.ChatTurn
}

func (f *fakeLLM) Generate(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) GenerateChat(_ context.Context, system string, history []core.ChatTurn, _ string) (string, error) {
	f.lastSystem = system
	f.lastTurns = history
	return f.reply, f.err
}

type fakeMessenger struct {
	texts     []string
	templates []string
	params    []map[string]string
	sendErr   error
}

func (f *fakeMessenger) SendText(_ context.Context, _, text string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.texts = append(f.texts, text)
	return "out-1", nil
}

func (f *fakeMessenger) SendTemplate(_ context.Context, _, template string, params map[string]string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.templates = append(f.templates, template)
	f.params = append(f.params, params)
	return "out-tpl", nil
}

type memoryArchive struct {
	data map[string][]models.Message
}

func (a *memoryArchive) SaveConversation(_ context.Context, id string, msgs []models.Message) error {
	a.data[id] = append([]models.Message(nil), msgs...)
	return nil
}

func (a *memoryArchive) LoadConversation(_ context.Context, id string) ([]models.Message, error) {
	return a.data[id], nil
}

type chatFixture struct {
	svc       *ChatService
	llm       *fakeLLM
	messenger *fakeMessenger
	archive   *memoryArchive
	searcher  *fakeSearcher
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	hot, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = hot.Close() })

	embedder := ingest.NewEmbeddingManager(hot, fakeEmbedProvider{}, time.Hour, true)
	archive := &memoryArchive{data: map[string][]models.Message{}}
	conversations := conversation.NewStore(hot, archive, time.Hour, conversation.DefaultActiveWindow)

	llm := &fakeLLM{reply: "con gusto te ayudo"}
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{}

	return &chatFixture{
		svc:       NewChatService(embedder, searcher, llm, messenger, conversations),
		llm:       llm,
		messenger: messenger,
		archive:   archive,
		searcher:  searcher,
	}
}

func TestHandleIncomingSendsReplyAndRecordsExchange(t *testing.T) {
	f := newChatFixture(t)

	err := f.svc.HandleIncoming(context.Background(), "+5215512345678", "hola", "in-1", "")
	require.NoError(t, err)

	require.Len(t, f.messenger.texts, 1)
	assert.Equal(t, "con gusto te ayudo", f.messenger.texts[0])

	saved := f.archive.data["wa_+5215512345678"]
	require.Len(t, saved, 2)
	assert.Equal(t, "user", saved[0].Role)
	assert.Equal(t, "hola", saved[0].Content)
	assert.Equal(t, "in-1", saved[0].MessageID)
	assert.Equal(t, "assistant", saved[1].Role)
	assert.Equal(t, "out-1", saved[1].MessageID)
}

func TestHandleIncomingLLMFailureSendsFallback(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = errors.New("model unavailable")

	err := f.svc.HandleIncoming(context.Background(), "+5215512345678", "hola", "in-1", "")
	require.NoError(t, err)

	require.Len(t, f.messenger.texts, 1)
	assert.Contains(t, f.messenger.texts[0], "¡Hola hermano(a)!")
}

func TestHandleIncomingRetrievalFailureStillAnswers(t *testing.T) {
	f := newChatFixture(t)
	f.searcher.err = errors.New("index down")

	err := f.svc.HandleIncoming(context.Background(), "+5215512345678", "hola", "in-1", "")
	require.NoError(t, err)
	require.Len(t, f.messenger.texts, 1)
	assert.Equal(t, "con gusto te ayudo", f.messenger.texts[0])
	assert.NotContains(t, f.llm.lastSystem, "Relevant context")
}

func TestHandleIncomingInjectsRetrievedContext(t *testing.T) {
	f := newChatFixture(t)
	f.searcher.matches = []docstore.Match{
		{DocumentID: "doc_1", Score: 0.9, Metadata: models.DocumentMetadata{Text: "Banco: Banamex"}},
	}

	require.NoError(t, f.svc.HandleIncoming(context.Background(), "+5215512345678", "cómo dono?", "in-1", ""))
	assert.Contains(t, f.llm.lastSystem, "Relevant context")
	assert.Contains(t, f.llm.lastSystem, "Banco: Banamex")
}

func TestHandleIncomingTrimsHistoryToTenTurns(t *testing.T) {
	f := newChatFixture(t)

	history := make([]models.Message, 16)
	for i := range history {
		history[i] = models.Message{Role: "user", Content: "old", Timestamp: models.NowISO()}
	}
	f.archive.data["wa_+5215512345678"] = history

	require.NoError(t, f.svc.HandleIncoming(context.Background(), "+5215512345678", "hola", "in-1", ""))
	assert.Len(t, f.llm.lastTurns, historyTurns)
}

func TestHandleIncomingSendFailureIsReturned(t *testing.T) {
	f := newChatFixture(t)
	f.messenger.sendErr = errors.New("gateway down")

	err := f.svc.HandleIncoming(context.Background(), "+5215512345678", "hola", "in-1", "")
	require.Error(t, err)
	assert.Empty(t, f.archive.data, "no exchange is recorded when the reply was never sent")
}

func TestHandleIncomingDropsEmptyMessage(t *testing.T) {
	f := newChatFixture(t)

	require.NoError(t, f.svc.HandleIncoming(context.Background(), "", "", "", ""))
	assert.Empty(t, f.messenger.texts)
}

func TestDetectCategory(t *testing.T) {
	assert.Equal(t, "donativo", DetectCategory("Quiero DONAR este mes"))
	assert.Equal(t, "evento", DetectCategory("a qué hora es el congreso?"))
	assert.Equal(t, "contacto", DetectCategory("necesito el contacto del ministerio"))
	assert.Empty(t, DetectCategory("hola, cómo estás?"))
}

func TestHandleIncomingRoutesIntentToTemplateFlow(t *testing.T) {
	f := newChatFixture(t)
	f.searcher.matches = []docstore.Match{donativoMatch()}

	require.NoError(t, f.svc.HandleIncoming(context.Background(), "+5215512345678", "quiero hacer un donativo", "in-1", ""))

	require.Len(t, f.messenger.templates, 1)
	assert.Equal(t, "donativo_info", f.messenger.templates[0])
	assert.Equal(t, "hermano(a)", f.messenger.params[0]["customer_name"])
	assert.Empty(t, f.messenger.texts, "intent requests skip the free-form reply")
}

// donativoMatch is a donation document as ingestion stores it: the
// search text flattened, the parsed fields preserved in metadata.
func donativoMatch() docstore.Match {
	return docstore.Match{
		DocumentID: "donativos_1",
		Metadata: models.DocumentMetadata{
			Category: "donativo",
			Text: "Banco: Banamex Cuenta: 1234567890 Beneficiario: Iglesia VEA " +
				"CLABE: 012345678901234567 Contacto: Hermana Ana +5215512345678",
			Fields: map[string]string{
				"bank_name":        "Banamex",
				"account_number":   "1234567890",
				"beneficiary_name": "Iglesia VEA",
				"clabe_number":     "012345678901234567",
				"contact_name":     "Hermana Ana +5215512345678",
				"contact_phone":    "+5215512345678",
			},
		},
	}
}

func TestHandleIntentSendsTemplateWithParsedFields(t *testing.T) {
	f := newChatFixture(t)
	f.searcher.matches = []docstore.Match{donativoMatch()}

	err := f.svc.HandleIntent(context.Background(), "+5215512345678", "quiero donar", "donativo", "Carlos")
	require.NoError(t, err)

	require.Len(t, f.messenger.templates, 1)
	assert.Equal(t, "donativo_info", f.messenger.templates[0])
	params := f.messenger.params[0]
	assert.Equal(t, "Carlos", params["customer_name"])
	assert.Equal(t, "Banamex", params["bank_name"])
	assert.Equal(t, "012345678901234567", params["clabe_number"])
}

// The flattened search text must never be re-parsed: a single-line
// donativo body would make the line-bounded patterns capture the whole
// document, so the template fields come only from stored metadata.
func TestHandleIntentIgnoresFlattenedText(t *testing.T) {
	f := newChatFixture(t)
	m := donativoMatch()
	m.Metadata.Fields = nil
	f.searcher.matches = []docstore.Match{m}

	err := f.svc.HandleIntent(context.Background(), "+5215512345678", "quiero donar", "donativo", "Carlos")
	require.NoError(t, err)

	assert.Empty(t, f.messenger.templates)
	require.Len(t, f.messenger.texts, 1)
	assert.Equal(t, "No encontré la información solicitada para tu consulta.", f.messenger.texts[0])
}

func TestHandleIntentNoMatchSendsNotFound(t *testing.T) {
	f := newChatFixture(t)

	err := f.svc.HandleIntent(context.Background(), "+5215512345678", "quiero donar", "donativo", "Carlos")
	require.NoError(t, err)

	assert.Empty(t, f.messenger.templates)
	require.Len(t, f.messenger.texts, 1)
	assert.Equal(t, "No encontré la información solicitada para tu consulta.", f.messenger.texts[0])
}

func TestHandleIntentIncompleteFieldsSendsNotFound(t *testing.T) {
	f := newChatFixture(t)
	f.searcher.matches = []docstore.Match{
		{DocumentID: "donativos_1", Metadata: models.DocumentMetadata{
			Category: "donativo",
			Text:     "Banco: Banamex",
			Fields:   map[string]string{"bank_name": "Banamex", "account_number": ""},
		}},
	}

	err := f.svc.HandleIntent(context.Background(), "+5215512345678", "quiero donar", "donativo", "Carlos")
	require.NoError(t, err)
	assert.Empty(t, f.messenger.templates)
	require.Len(t, f.messenger.texts, 1)
}
