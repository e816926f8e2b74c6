package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vea-digital/asistente/internal/models"
)

// PgSearcher is the substitutable real index: document vectors mirrored
// into a pgvector table and queried with the <-> distance operator. It is
// both a Searcher and the store's secondary Indexer, enabled when
// DATABASE_URL is configured.
type PgSearcher struct {
	db  *sql.DB
	dim int
}

var (
	_ Searcher = (*PgSearcher)(nil)
	_ Indexer  = (*PgSearcher)(nil)
)

func NewPgSearcher(ctx context.Context, databaseURL string, dim int) (*PgSearcher, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if dim <= 0 {
		dim = 768
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &PgSearcher{db: db, dim: dim}
	if err := s.ensureSchema(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgSearcher) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id         text PRIMARY KEY,
			embedding  vector(%d) NOT NULL,
			metadata   jsonb NOT NULL DEFAULT '{}',
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, s.dim),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("bootstrap documents table: %w", err)
		}
	}
	return nil
}

func (s *PgSearcher) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PgSearcher) Index(ctx context.Context, docID string, vector []float32, meta models.DocumentMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO documents (id, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata, updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, q, docID, pgvector.NewVector(vector), metaJSON)
	return err
}

func (s *PgSearcher) Remove(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	return err
}

func (s *PgSearcher) FindSimilar(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 3
	}
	const q = `
		SELECT id, metadata, embedding <-> $1 AS distance
		FROM documents
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m        Match
			metaJSON []byte
			distance float64
		)
		if err := rows.Scan(&m.DocumentID, &metaJSON, &distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
			return nil, err
		}
		// L2 distance from pgvector; flip so higher still means closer.
		m.Score = 1.0 / (1.0 + distance)
		out = append(out, m)
	}
	return out, rows.Err()
}
