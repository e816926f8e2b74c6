package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

// stubObjectStore implements just enough of the object store for the
// archive: an in-memory key/value with classified misses.
type stubObjectStore struct {
	objects     map[string][]byte
	downloadErr error
}

func (s *stubObjectStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.objects[key] = data
	return "https://bucket.local/" + key, nil
}

func (s *stubObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrObjectNotFound, key)
	}
	return data, nil
}

func (s *stubObjectStore) DownloadToFile(context.Context, string, string) error { return nil }
func (s *stubObjectStore) Delete(context.Context, string) error                 { return nil }
func (s *stubObjectStore) List(context.Context, string) ([]string, error)       { return nil, nil }
func (s *stubObjectStore) Metadata(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (s *stubObjectStore) SetMetadata(context.Context, string, map[string]string) error { return nil }

func TestObjectArchiveRoundtrip(t *testing.T) {
	ctx := context.Background()
	obj := &stubObjectStore{objects: map[string][]byte{}}
	a := NewObjectArchive(obj)

	msgs := []models.Message{
		{Role: "user", Content: "hola", Timestamp: models.NowISO()},
		{Role: "assistant", Content: "hola!", Timestamp: models.NowISO()},
	}
	require.NoError(t, a.SaveConversation(ctx, "wa_123", msgs))

	assert.Contains(t, obj.objects, "conversations/wa_123.json")

	got, err := a.LoadConversation(ctx, "wa_123")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hola", got[0].Content)
}

func TestObjectArchiveMissingIsNotAnError(t *testing.T) {
	a := NewObjectArchive(&stubObjectStore{objects: map[string][]byte{}})

	got, err := a.LoadConversation(context.Background(), "wa_nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Only a classified miss is treated as "never saved"; any other durable
// failure must propagate so the caller can fall back deliberately.
func TestObjectArchiveRealErrorsPropagate(t *testing.T) {
	outage := errors.New("connection reset")
	a := NewObjectArchive(&stubObjectStore{objects: map[string][]byte{}, downloadErr: outage})

	_, err := a.LoadConversation(context.Background(), "wa_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, outage))
}
