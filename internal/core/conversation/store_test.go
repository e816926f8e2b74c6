package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vea-digital/asistente/internal/core/cache"
	"github.com/vea-digital/asistente/internal/models"
)

// memoryArchive is an in-memory stand-in for the durable tier.
type memoryArchive struct {
	data    map[string][]models.Message
	loadErr error
	saveErr error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{data: map[string][]models.Message{}}
}

func (a *memoryArchive) SaveConversation(_ context.Context, id string, messages []models.Message) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.data[id] = append([]models.Message(nil), messages...)
	return nil
}

func (a *memoryArchive) LoadConversation(_ context.Context, id string) ([]models.Message, error) {
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	msgs, ok := a.data[id]
	if !ok {
		return nil, nil
	}
	return append([]models.Message(nil), msgs...), nil
}

func newTestStore(t *testing.T, archive Archive) *Store {
	t.Helper()
	hot, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = hot.Close() })
	return NewStore(hot, archive, time.Hour, DefaultActiveWindow)
}

func makeMessages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs[i] = models.Message{
			Role:      role,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: models.NowISO(),
		}
	}
	return msgs
}

func TestLoadDoubleMissReturnsEmpty(t *testing.T) {
	s := newTestStore(t, newMemoryArchive())

	msgs := s.Load(context.Background(), "wa_unknown")
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestLoadPromotesFromArchive(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	full := makeMessages(30)
	archive.data["wa_1"] = full

	s := newTestStore(t, archive)

	got := s.Load(ctx, "wa_1")
	assert.Len(t, got, 30, "durable read returns the full history")

	// The promotion leaves only the recent window in the hot tier, so a
	// second read comes back hot and truncated.
	got = s.Load(ctx, "wa_1")
	require.Len(t, got, DefaultActiveWindow)
	assert.Equal(t, "message 10", got[0].Content)
	assert.Equal(t, "message 29", got[len(got)-1].Content)
}

func TestSaveKeepsFullHistoryDurableWindowHot(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	s := newTestStore(t, archive)

	full := makeMessages(25)
	require.NoError(t, s.Save(ctx, "wa_2", full))

	assert.Len(t, archive.data["wa_2"], 25)

	hot := s.Load(ctx, "wa_2")
	assert.Len(t, hot, DefaultActiveWindow)
}

func TestSaveDurableFailureStillWritesHot(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	archive.saveErr = errors.New("blob outage")
	s := newTestStore(t, archive)

	require.NoError(t, s.Save(ctx, "wa_3", makeMessages(4)))
	assert.Len(t, s.Load(ctx, "wa_3"), 4)
}

func TestAppendExchangeGrowsDurableHistory(t *testing.T) {
	ctx := context.Background()
	archive := newMemoryArchive()
	archive.data["wa_4"] = makeMessages(6)
	s := newTestStore(t, archive)

	user := models.Message{Role: "user", Content: "cómo puedo donar?", Timestamp: models.NowISO()}
	bot := models.Message{Role: "assistant", Content: "puedes donar así", Timestamp: models.NowISO()}
	require.NoError(t, s.AppendExchange(ctx, "wa_4", user, bot))

	saved := archive.data["wa_4"]
	require.Len(t, saved, 8)
	assert.Equal(t, "cómo puedo donar?", saved[6].Content)
	assert.Equal(t, "assistant", saved[7].Role)
}

func TestLoadArchiveFailureDegradesToEmpty(t *testing.T) {
	archive := newMemoryArchive()
	archive.loadErr = errors.New("blob outage")
	s := newTestStore(t, archive)

	msgs := s.Load(context.Background(), "wa_5")
	assert.Empty(t, msgs)
}

func TestTail(t *testing.T) {
	msgs := makeMessages(5)
	assert.Len(t, tail(msgs, 10), 5)
	assert.Len(t, tail(msgs, 3), 3)
	assert.Equal(t, "message 2", tail(msgs, 3)[0].Content)
}
