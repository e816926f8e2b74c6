package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/vea-digital/asistente/internal/core/messaging"
	"github.com/vea-digital/asistente/internal/services"
)

// Gateway event types delivered to the webhook.
const (
	eventMessageReceived = "Microsoft.Communication.AdvancedMessageReceived"
	eventDeliveryReport  = "Microsoft.Communication.AdvancedMessageDeliveryReportReceived"
)

// gatewayEvent is the envelope the messaging gateway posts to us. Data
// holds the event-type-specific payload.
type gatewayEvent struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

type messageReceivedData struct {
	ID                string `json:"id"`
	ReceivedTimestamp string `json:"receivedTimestamp"`
	ChannelType       string `json:"channelType"`
	From              struct {
		PhoneNumber string `json:"phoneNumber"`
	} `json:"from"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type deliveryReportData struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	DeliveryTimestamp string `json:"deliveryTimestamp"`
}

// WebhookHandler receives gateway events: inbound WhatsApp messages and
// delivery reports.
type WebhookHandler struct {
	chat    *services.ChatService
	tracker *messaging.StatusTracker
}

func NewWebhookHandler(chat *services.ChatService, tracker *messaging.StatusTracker) *WebhookHandler {
	return &WebhookHandler{chat: chat, tracker: tracker}
}

// HandleEvents accepts a batch of gateway events. Events are processed
// independently; a bad event is logged and skipped so the gateway never
// retries the whole batch over one malformed entry.
func (h *WebhookHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var events []gatewayEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		switch ev.EventType {
		case eventMessageReceived:
			h.handleMessageReceived(r, ev.Data)
		case eventDeliveryReport:
			h.handleDeliveryReport(r, ev.Data)
		default:
			log.Printf("webhook: unhandled event type %s", ev.EventType)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleMessageReceived(r *http.Request, data json.RawMessage) {
	var msg messageReceivedData
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("webhook: bad message event: %v", err)
		return
	}
	if msg.From.PhoneNumber == "" || msg.Message.Content == "" {
		log.Println("webhook: message event missing sender or content")
		return
	}
	if msg.ChannelType != "" && msg.ChannelType != "whatsapp" {
		log.Printf("webhook: ignoring message from channel %s", msg.ChannelType)
		return
	}

	if err := h.chat.HandleIncoming(r.Context(), msg.From.PhoneNumber, msg.Message.Content, msg.ID, msg.ReceivedTimestamp); err != nil {
		log.Printf("webhook: failed to handle message from %s: %v", msg.From.PhoneNumber, err)
	}
}

func (h *WebhookHandler) handleDeliveryReport(r *http.Request, data json.RawMessage) {
	var report deliveryReportData
	if err := json.Unmarshal(data, &report); err != nil {
		log.Printf("webhook: bad delivery report: %v", err)
		return
	}
	if report.ID == "" {
		log.Println("webhook: delivery report missing message id")
		return
	}

	if err := h.tracker.Record(r.Context(), report.ID, report.Status, report.DeliveryTimestamp); err != nil {
		log.Printf("webhook: failed to record status for %s: %v", report.ID, err)
	}
}
