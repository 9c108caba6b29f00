// Package mock provides a retrieval client for tests.
package mock

import (
	"context"
	"sync"

	"github.com/skylinemotors/concierge/internal/retrieval"
)

// Client is a configurable in-memory retrieval client.
type Client struct {
	mu sync.Mutex

	// Passages returned by Query, truncated to k.
	Passages []retrieval.Passage

	// QueryErr, when set, is returned by every Query.
	QueryErr error

	// QueryFn, when set, overrides the canned behaviour entirely.
	QueryFn func(ctx context.Context, text string, k int) ([]retrieval.Passage, error)

	// Delay, when set, makes Query block until the delay elapses or ctx is
	// done. Used to exercise retrieval timeouts.
	Delay func(ctx context.Context) error

	// QueryCalls records the text of each query.
	QueryCalls []string
}

var _ retrieval.Client = (*Client)(nil)

// Query implements retrieval.Client.
func (c *Client) Query(ctx context.Context, text string, k int) ([]retrieval.Passage, error) {
	c.mu.Lock()
	c.QueryCalls = append(c.QueryCalls, text)
	fn, delay, queryErr := c.QueryFn, c.Delay, c.QueryErr
	passages := make([]retrieval.Passage, len(c.Passages))
	copy(passages, c.Passages)
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, k)
	}
	if delay != nil {
		if err := delay(ctx); err != nil {
			return nil, err
		}
	}
	if queryErr != nil {
		return nil, queryErr
	}
	if k > 0 && len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// Calls returns a snapshot of recorded query texts.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.QueryCalls))
	copy(out, c.QueryCalls)
	return out
}
