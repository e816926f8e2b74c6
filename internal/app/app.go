package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vea-digital/asistente/internal/config"
	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/core/cache"
	"github.com/vea-digital/asistente/internal/core/conversation"
	"github.com/vea-digital/asistente/internal/core/docstore"
	"github.com/vea-digital/asistente/internal/core/extract"
	"github.com/vea-digital/asistente/internal/core/ingest"
	"github.com/vea-digital/asistente/internal/core/llm"
	"github.com/vea-digital/asistente/internal/core/messaging"
	"github.com/vea-digital/asistente/internal/core/objectstore"
	"github.com/vea-digital/asistente/internal/services"
)

type App struct {
	Cache      *cache.BadgerCache
	Embedder   *llm.GeminiEmbedder
	LLM        *llm.GeminiLLM
	PgSearcher *docstore.PgSearcher
	Dispatcher *ingest.Dispatcher
	Server     *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	hot, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the cache, %w", err)
	}
	log.Println("Cache initialized and ready.")

	obj, err := objectstore.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
	}

	embedder := ingest.NewEmbeddingManager(hot, geminiEmbedder, time.Duration(cfg.EmbeddingTTL)*time.Second, true)

	// The pgvector index is optional; without DATABASE_URL the brute-force
	// cache searcher serves retrieval.
	var (
		indexer  docstore.Indexer
		searcher docstore.Searcher
		pg       *docstore.PgSearcher
	)
	if cfg.DatabaseURL != "" {
		pg, err = docstore.NewPgSearcher(appCtx, cfg.DatabaseURL, 0)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the vector index, %w", err)
		}
		indexer = pg
		searcher = pg
		log.Println("pgvector index initialized and ready.")
	}

	store := docstore.NewStore(hot, time.Duration(cfg.CacheTTLSeconds)*time.Second, indexer)
	if searcher == nil {
		searcher = docstore.NewCacheSearcher(store)
	}

	extractor := extract.NewExtractor(extract.NewDocconvOCR())

	chunker, err := ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultOverlap)
	if err != nil {
		return nil, err
	}

	pipeline := ingest.NewPipeline(obj, extractor, chunker, embedder, store, nil)
	dispatcher := ingest.NewDispatcher(pipeline, obj)
	dispatcher.Start(ctx, cfg.IngestWorkers)

	if cfg.BackfillOnStart {
		go func() {
			if _, err := dispatcher.Backfill(ctx, cfg.IngestWorkers); err != nil {
				log.Printf("startup backfill failed: %v", err)
			}
		}()
	}

	conversations := conversation.NewStore(hot, conversation.NewObjectArchive(obj), time.Duration(cfg.ContextTTLSeconds)*time.Second, conversation.DefaultActiveWindow)

	var messenger core.Messenger
	if cfg.GatewayEndpoint != "" {
		messenger, err = messaging.NewGatewayClient(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("WARN: WHATSAPP_ENDPOINT not set; outbound messages will only be logged")
		messenger = messaging.LogMessenger{}
	}
	tracker := messaging.NewStatusTracker(hot, obj)

	chatService := services.NewChatService(embedder, searcher, llmProvider, messenger, conversations)
	docService := services.NewDocumentService(obj, store, dispatcher)

	server := NewServer(cfg, chatService, docService, tracker, messenger)

	return &App{
		Cache:      hot,
		Embedder:   geminiEmbedder,
		LLM:        llmProvider,
		PgSearcher: pg,
		Dispatcher: dispatcher,
		Server:     server,
	}, nil
}

func (a *App) Close() {
	if a.PgSearcher != nil {
		_ = a.PgSearcher.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
}
