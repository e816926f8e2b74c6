package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vea-digital/asistente/internal/core"
	"github.com/vea-digital/asistente/internal/models"
)

// Prefixes under the bucket that are never documents.
var nonDocumentPrefixes = []string{"conversations/", "message_status/"}

// Dispatcher feeds trigger payloads to the pipeline through a bounded
// job queue with a fixed worker pool. Each job is an isolated pipeline
// invocation; parallelism across documents comes from the pool size.
type Dispatcher struct {
	pipeline *Pipeline
	obj      core.ObjectStore
	jobs     chan models.TriggerPayload
}

// NewDispatcher constructs the dispatcher with a bounded job queue (64).
func NewDispatcher(pipeline *Pipeline, obj core.ObjectStore) *Dispatcher {
	return &Dispatcher{
		pipeline: pipeline,
		obj:      obj,
		jobs:     make(chan models.TriggerPayload, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel.
func (d *Dispatcher) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("ingest: worker %d shutting down", w)
					return
				case payload := <-d.jobs:
					d.processGated(ctx, w, payload)
				}
			}
		}(w)
	}
}

// Enqueue schedules a payload for ingestion. When the queue is full it
// blocks only until ctx is done, so a caller on a request path bounds
// the wait with its own deadline.
func (d *Dispatcher) Enqueue(ctx context.Context, payload models.TriggerPayload) error {
	select {
	case d.jobs <- payload:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", payload.BlobName, ctx.Err())
	}
}

// processGated applies the idempotency gate, then runs the pipeline.
func (d *Dispatcher) processGated(ctx context.Context, worker int, payload models.TriggerPayload) {
	if payload.BlobName == "" {
		log.Println("ingest: dropping payload without blob_name")
		return
	}

	metadata, err := d.obj.Metadata(ctx, payload.BlobName)
	if err != nil {
		log.Printf("ingest: metadata check failed for %s, processing anyway: %v", payload.BlobName, err)
	} else if AlreadyProcessed(metadata) {
		log.Printf("ingest: %s already processed, skipping", payload.BlobName)
		return
	}

	log.Printf("ingest: worker %d processing %s", worker, payload.BlobName)
	if err := d.pipeline.ProcessOne(ctx, payload); err != nil {
		log.Printf("ingest: worker %d failed on %s: %v", worker, payload.BlobName, err)
	}
}

// Backfill lists the bucket and enqueues every document the idempotency
// gate lets through. Metadata checks run with bounded concurrency so a
// large bucket does not serialize on per-object head requests.
func (d *Dispatcher) Backfill(ctx context.Context, concurrency int) (int, error) {
	keys, err := d.obj.List(ctx, "")
	if err != nil {
		return 0, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	enqueued := make(chan string, len(keys))
	for _, key := range keys {
		if skipKey(key) {
			continue
		}
		g.Go(func() error {
			metadata, err := d.obj.Metadata(gctx, key)
			if err != nil {
				log.Printf("backfill: metadata check failed for %s: %v", key, err)
				return nil
			}
			if AlreadyProcessed(metadata) {
				return nil
			}
			if err := d.Enqueue(gctx, models.TriggerPayload{BlobName: key}); err != nil {
				return err
			}
			enqueued <- key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(enqueued), err
	}
	close(enqueued)

	n := len(enqueued)
	log.Printf("backfill: enqueued %d pending documents", n)
	return n, nil
}

func skipKey(key string) bool {
	for _, p := range nonDocumentPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return key == "" || strings.HasSuffix(key, "/")
}
