// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/skylinemotors/concierge/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
//
// By default it returns deterministic unit vectors derived from the input text
// length so tests get stable, distinguishable embeddings without configuring
// anything. Set EmbedErr to inject failures.
type Provider struct {
	mu sync.Mutex

	// Dims is the dimensionality of returned vectors. Defaults to 4 when zero.
	Dims int

	// EmbedFn, when non-nil, overrides the default vector derivation.
	EmbedFn func(text string) []float32

	// EmbedErr, if non-nil, is returned from Embed and EmbedBatch.
	EmbedErr error

	// EmbedCalls records every text passed to Embed.
	EmbedCalls []string

	// EmbedBatchCalls records every slice passed to EmbedBatch.
	EmbedBatchCalls [][]string
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)

func (p *Provider) dims() int {
	if p.Dims <= 0 {
		return 4
	}
	return p.Dims
}

func (p *Provider) vector(text string) []float32 {
	if p.EmbedFn != nil {
		return p.EmbedFn(text)
	}
	v := make([]float32, p.dims())
	for i := range v {
		v[i] = float32((len(text)+i)%7) / 7
	}
	return v
}

// Embed records the call and returns a deterministic vector for text.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vector(text), nil
}

// EmbedBatch records the call and returns one vector per input text.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, cp)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

// Dimensions returns Dims (default 4).
func (p *Provider) Dimensions() int { return p.dims() }

// ModelID returns a fixed identifier for logging.
func (p *Provider) ModelID() string { return "mock-embeddings" }
