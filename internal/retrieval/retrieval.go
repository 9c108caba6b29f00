// Package retrieval provides similarity search over the Skyline Motors dealer
// handbook.
//
// The handbook is chunked, embedded, and stored in a PostgreSQL table with a
// pgvector HNSW index. [Index] is the process-wide handle to that store: it is
// constructed once, initialises its connection pool lazily on first query (the
// one-time warm-up), and can be [Index.Reset] after the handbook is replaced
// and re-ingested.
//
// Callers that only need to query depend on the narrow [Client] interface.
package retrieval

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the handbook index cannot be reached or queried.
// Callers must degrade to "no evidence" rather than failing the conversation
// turn.
var ErrUnavailable = errors.New("retrieval: index unavailable")

// DefaultMaxTopK is the upper bound applied to a query's k when the caller
// does not configure one.
const DefaultMaxTopK = 10

// Passage is a single retrieved handbook excerpt. Read-only once returned.
type Passage struct {
	// Text is the chunk content.
	Text string

	// Score is the cosine similarity to the query in [0, 1], higher is closer.
	Score float64

	// Rank is the 1-based position in the result ordering (descending score).
	Rank int
}

// Client is the query-side view of the handbook index.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Query returns the k passages most similar to text, ranked by descending
	// similarity. k is clamped to [1, max]; it never causes an error on its
	// own. A failure to reach the index is reported as an error satisfying
	// errors.Is(err, ErrUnavailable).
	Query(ctx context.Context, text string, k int) ([]Passage, error)
}

// clampTopK bounds k to [1, max]. Non-positive k falls back to 1; max must be
// positive.
func clampTopK(k, max int) int {
	if k < 1 {
		return 1
	}
	if k > max {
		return max
	}
	return k
}
