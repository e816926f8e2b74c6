package messaging

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/vea-digital/asistente/internal/core"
)

// LogMessenger stands in for the gateway when no endpoint is configured.
// Sends are logged and assigned a local message id so the rest of the
// flow (status tracking, conversation records) still works.
type LogMessenger struct{}

var _ core.Messenger = (*LogMessenger)(nil)

func (LogMessenger) SendText(_ context.Context, to, text string) (string, error) {
	id := uuid.NewString()
	log.Printf("messenger(log): text to %s [%s]: %s", to, id, text)
	return id, nil
}

func (LogMessenger) SendTemplate(_ context.Context, to, template string, params map[string]string) (string, error) {
	id := uuid.NewString()
	log.Printf("messenger(log): template %s to %s [%s]: %v", template, to, id, params)
	return id, nil
}
