package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/messaging"
)

// MessageHandler exposes outbound sends and delivery-status lookups.
type MessageHandler struct {
	messenger core.Messenger
	tracker   *messaging.StatusTracker
}

func NewMessageHandler(messenger core.Messenger, tracker *messaging.StatusTracker) *MessageHandler {
	return &MessageHandler{messenger: messenger, tracker: tracker}
}

type sendTextRequest struct {
	ToNumber string `json:"to_number"`
	Message  string `json:"message"`
}

type sendTemplateRequest struct {
	ToNumber         string            `json:"to_number"`
	TemplateName     string            `json:"template_name"`
	TemplateLanguage string            `json:"template_language"`
	Parameters       map[string]string `json:"parameters"`
}

func (h *MessageHandler) SendText(w http.ResponseWriter, r *http.Request) {
	var req sendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !messaging.ValidatePhoneNumber(req.ToNumber) {
		http.Error(w, "invalid to_number", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	messageID, err := h.messenger.SendText(r.Context(), req.ToNumber, req.Message)
	if err != nil {
		http.Error(w, fmt.Sprintf("send failed: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message_id": messageID})
}

func (h *MessageHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var req sendTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !messaging.ValidatePhoneNumber(req.ToNumber) {
		http.Error(w, "invalid to_number", http.StatusBadRequest)
		return
	}
	if req.TemplateName == "" {
		http.Error(w, "template_name is required", http.StatusBadRequest)
		return
	}

	messageID, err := h.messenger.SendTemplate(r.Context(), req.ToNumber, req.TemplateName, req.Parameters)
	if err != nil {
		http.Error(w, fmt.Sprintf("send failed: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message_id": messageID})
}

func (h *MessageHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "message_id")

	status := h.tracker.Status(r.Context(), messageID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
