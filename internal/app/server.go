package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vea-digital/asistente/internal/api/handlers"
	"github.com/vea-digital/asistente/internal/config"
	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/messaging"
	"github.com/vea-digital/asistente/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, chat *services.ChatService, docs *services.DocumentService, tracker *messaging.StatusTracker, messenger core.Messenger) *Server {
	webhookHandler := handlers.NewWebhookHandler(chat, tracker)
	docHandler := handlers.NewDocumentHandler(docs)
	msgHandler := handlers.NewMessageHandler(messenger, tracker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/events", webhookHandler.HandleEvents)

		api.Post("/documents/upload", docHandler.UploadDocument)
		api.Get("/documents", docHandler.ListDocuments)
		api.Get("/documents/{document_id}", docHandler.GetDocument)
		api.Delete("/documents/{document_id}", docHandler.DeleteDocument)
		api.Post("/documents/backfill", docHandler.Backfill)

		api.Post("/messages/send", msgHandler.SendText)
		api.Post("/messages/template", msgHandler.SendTemplate)
		api.Get("/messages/{message_id}/status", msgHandler.GetStatus)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
