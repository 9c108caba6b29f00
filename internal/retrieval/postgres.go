package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/pgvector/pgvector-go"

	"github.com/skylinemotors/concierge/pkg/provider/embeddings"
)

// IndexConfig configures the PostgreSQL-backed handbook index.
type IndexConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Embedder produces query and chunk vectors.
	Embedder embeddings.Provider

	// Dimensions is the embedding width of the stored vectors. It must match
	// Embedder.Dimensions().
	Dimensions int

	// MaxTopK caps the per-query k. Defaults to DefaultMaxTopK.
	MaxTopK int

	// Logger for index lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Index is a lazily-initialised, shared handle to the handbook store.
//
// The first Query (or Ingest) opens the connection pool and runs migrations;
// subsequent calls reuse the pool. Reset discards the pool so the next call
// rebuilds it against the current handbook contents.
type Index struct {
	cfg IndexConfig

	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ Client = (*Index)(nil)

// NewIndex validates cfg and returns an unconnected Index. No I/O happens
// until the first query.
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("retrieval: config: DSN is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("retrieval: config: embedder is required")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = cfg.Embedder.Dimensions()
	}
	if cfg.Dimensions != cfg.Embedder.Dimensions() {
		return nil, fmt.Errorf("retrieval: config: dimensions %d does not match embedder dimensions %d",
			cfg.Dimensions, cfg.Embedder.Dimensions())
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultMaxTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Index{cfg: cfg}, nil
}

// ensurePool returns the shared pool, creating it and migrating the schema on
// first use.
func (ix *Index) ensurePool(ctx context.Context) (*pgxpool.Pool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.pool != nil {
		return ix.pool, nil
	}

	poolCfg, err := pgxpool.ParseConfig(ix.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("retrieval: parse DSN: %w: %w", ErrUnavailable, err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("retrieval: connect: %w: %w", ErrUnavailable, err)
	}
	if err := migrate(ctx, pool, ix.cfg.Dimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("retrieval: migrate: %w: %w", ErrUnavailable, err)
	}

	ix.cfg.Logger.Info("handbook index ready", "dimensions", ix.cfg.Dimensions)
	ix.pool = pool
	return pool, nil
}

// Query implements Client.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Passage, error) {
	k = clampTopK(k, ix.cfg.MaxTopK)

	pool, err := ix.ensurePool(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := ix.cfg.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w: %w", ErrUnavailable, err)
	}

	rows, err := pool.Query(ctx,
		`SELECT content, 1 - (embedding <=> $1) AS score
		   FROM handbook_chunks
		  ORDER BY embedding <=> $1
		  LIMIT $2`,
		pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		if err := rows.Scan(&p.Text, &p.Score); err != nil {
			return nil, fmt.Errorf("retrieval: scan: %w: %w", ErrUnavailable, err)
		}
		p.Rank = len(passages) + 1
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieval: rows: %w: %w", ErrUnavailable, err)
	}
	return passages, nil
}

// Reset discards the connection pool. The next query re-initialises against
// the current store contents. Safe to call concurrently with queries;
// in-flight queries finish against the old pool.
func (ix *Index) Reset() {
	ix.mu.Lock()
	pool := ix.pool
	ix.pool = nil
	ix.mu.Unlock()
	if pool != nil {
		pool.Close()
	}
	ix.cfg.Logger.Info("handbook index reset")
}

// Ping checks connectivity for readiness probes.
func (ix *Index) Ping(ctx context.Context) error {
	pool, err := ix.ensurePool(ctx)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("retrieval: ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (ix *Index) Close() {
	ix.Reset()
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS handbook_chunks (
			id        BIGSERIAL PRIMARY KEY,
			source    TEXT NOT NULL,
			seq       INT NOT NULL,
			content   TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			UNIQUE (source, seq)
		)`, dims),
		`CREATE INDEX IF NOT EXISTS handbook_chunks_embedding_idx
			ON handbook_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
