package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/pgvector/pgvector-go"
)

// Chunking defaults tuned for the dealer handbook's section lengths.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 200
)

// SplitText slices text into chunks of at most size runes with the given
// overlap between consecutive chunks. Chunk boundaries are nudged back to the
// nearest whitespace so words stay intact. Leading and trailing whitespace is
// trimmed from each chunk and empty chunks are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back up to a whitespace boundary, but never past the midpoint.
			cut := end
			for cut > start+size/2 && !unicode.IsSpace(runes[cut-1]) {
				cut--
			}
			if cut > start+size/2 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
		// The overlap restart may land mid-word; advance to the next boundary.
		for start < end && !unicode.IsSpace(runes[start]) && (start == 0 || !unicode.IsSpace(runes[start-1])) {
			start++
		}
	}
	return chunks
}

// Ingest replaces the stored chunks for source with a fresh chunking and
// embedding of text. It returns the number of chunks written. Call Reset on
// the index afterwards if other processes share the store.
func (ix *Index) Ingest(ctx context.Context, source, text string) (int, error) {
	pool, err := ix.ensurePool(ctx)
	if err != nil {
		return 0, err
	}

	chunks := SplitText(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("retrieval: ingest %q: no content", source)
	}

	vecs, err := ix.cfg.Embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("retrieval: embed chunks: %w: %w", ErrUnavailable, err)
	}
	if len(vecs) != len(chunks) {
		return 0, fmt.Errorf("retrieval: embed chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("retrieval: begin: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM handbook_chunks WHERE source = $1`, source); err != nil {
		return 0, fmt.Errorf("retrieval: clear source: %w: %w", ErrUnavailable, err)
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(
			`INSERT INTO handbook_chunks (source, seq, content, embedding) VALUES ($1, $2, $3, $4)`,
			source, i, chunk, pgvector.NewVector(vecs[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("retrieval: insert chunks: %w: %w", ErrUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("retrieval: commit: %w: %w", ErrUnavailable, err)
	}

	ix.cfg.Logger.Info("handbook ingested", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}
