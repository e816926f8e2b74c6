package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/vea-digital/asistente/internal/config"
	"github.com/vea-digital/asistente/internal/core/cache"
)

func TestValidatePhoneNumber(t *testing.T) {
	assert.True(t, ValidatePhoneNumber("+5215512345678"))
	assert.True(t, ValidatePhoneNumber("55 1234 5678"))
	assert.False(t, ValidatePhoneNumber("12345"))
	assert.False(t, ValidatePhoneNumber(""))
	assert.False(t, ValidatePhoneNumber("sin numero"))
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *GatewayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGatewayClient(&cfg.Config{
		GatewayEndpoint: srv.URL,
		GatewayAPIKey:   "secret",
		SenderNumber:    "+5215500000000",
	})
	require.NoError(t, err)
	return g
}

func TestSendTextPostsGatewayShape(t *testing.T) {
	var got map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages:send", r.URL.Path)
		assert.Equal(t, "2023-03-31-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"messageId": "msg-123"})
	})

	id, err := g.SendText(context.Background(), "+5215512345678", "hola")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	assert.Equal(t, "whatsapp", got["channel"])
	assert.Equal(t, "+5215500000000", got["from"])
	assert.Equal(t, "+5215512345678", got["to"])
	msg, ok := got["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hola", msg["content"])
}

func TestSendTemplateIncludesLanguageAndParams(t *testing.T) {
	var got map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"messageId": "msg-tpl"})
	})

	id, err := g.SendTemplate(context.Background(), "+5215512345678", "donativo_info", map[string]string{
		"customer_name": "Ana",
		"bank_name":     "Banamex",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-tpl", id)

	tpl, ok := got["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "donativo_info", tpl["name"])
	assert.Equal(t, "es_MX", tpl["language"])
	params, ok := tpl["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Banamex", params["bank_name"])
}

func TestSendTextGatewayError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := g.SendText(context.Background(), "+5215512345678", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewGatewayClientRequiresEndpoint(t *testing.T) {
	_, err := NewGatewayClient(&cfg.Config{})
	assert.Error(t, err)
}

func TestStatusTrackerRoundtrip(t *testing.T) {
	ctx := context.Background()
	hot, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = hot.Close() })

	obj := &stubObjectStore{objects: map[string][]byte{}}
	tracker := NewStatusTracker(hot, obj)

	require.NoError(t, tracker.Record(ctx, "msg-1", "delivered", time.Now().UTC().Format(time.RFC3339)))

	status := tracker.Status(ctx, "msg-1")
	assert.Equal(t, "delivered", status.Status)
	assert.NotEmpty(t, status.UpdatedAt)

	assert.Contains(t, obj.objects, "message_status/msg-1.json")
}

func TestStatusUnknownWhenNoReport(t *testing.T) {
	hot, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = hot.Close() })

	tracker := NewStatusTracker(hot, &stubObjectStore{objects: map[string][]byte{}})
	status := tracker.Status(context.Background(), "never-sent")
	assert.Equal(t, "unknown", status.Status)
}

// stubObjectStore records uploads; the rest of the interface is unused
// by the tracker.
type stubObjectStore struct {
	objects map[string][]byte
}

func (s *stubObjectStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.objects[key] = data
	return "https://bucket.local/" + key, nil
}
func (s *stubObjectStore) Download(context.Context, string) ([]byte, error)     { return nil, nil }
func (s *stubObjectStore) DownloadToFile(context.Context, string, string) error { return nil }
func (s *stubObjectStore) Delete(context.Context, string) error                 { return nil }
func (s *stubObjectStore) List(context.Context, string) ([]string, error)       { return nil, nil }
func (s *stubObjectStore) Metadata(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (s *stubObjectStore) SetMetadata(context.Context, string, map[string]string) error { return nil }
