package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode"

	cfg "github.com/vea-digital/asistente/internal/config"
	"github.com/vea-digital/asistente/internal/core"
)

// GatewayClient sends WhatsApp messages through the messaging gateway's
// REST API.
type GatewayClient struct {
	endpoint string
	apiKey   string
	sender   string
	http     *http.Client
}

var _ core.Messenger = (*GatewayClient)(nil)

func NewGatewayClient(c *cfg.Config) (*GatewayClient, error) {
	if c.GatewayEndpoint == "" {
		return nil, fmt.Errorf("WHATSAPP_ENDPOINT not set")
	}
	return &GatewayClient{
		endpoint: c.GatewayEndpoint,
		apiKey:   c.GatewayAPIKey,
		sender:   c.SenderNumber,
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// SendText sends a plain text message and returns the gateway message id.
func (g *GatewayClient) SendText(ctx context.Context, to, text string) (string, error) {
	body := map[string]any{
		"channel": "whatsapp",
		"from":    g.sender,
		"to":      to,
		"message": map[string]string{"content": text},
	}
	return g.post(ctx, body)
}

// SendTemplate sends a pre-approved template with parameter values.
func (g *GatewayClient) SendTemplate(ctx context.Context, to, template string, params map[string]string) (string, error) {
	body := map[string]any{
		"channel": "whatsapp",
		"from":    g.sender,
		"to":      to,
		"template": map[string]any{
			"name":       template,
			"language":   "es_MX",
			"parameters": params,
		},
	}
	return g.post(ctx, body)
}

func (g *GatewayClient) post(ctx context.Context, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := g.endpoint + "/messages:send?api-version=2023-03-31-preview"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gateway send: status %d: %s", resp.StatusCode, raw)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gateway send: decode response: %w", err)
	}
	return out.MessageID, nil
}

// ValidatePhoneNumber checks for a plausible E.164-ish number: at least
// ten digits once formatting is stripped.
func ValidatePhoneNumber(number string) bool {
	digits := 0
	for _, r := range number {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 10
}
