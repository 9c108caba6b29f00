// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/skylinemotors/concierge/pkg/provider/stt"
	"github.com/skylinemotors/concierge/pkg/types"
)

// Provider is a mock implementation of stt.Provider. Tests push transcripts
// through Emit and close the stream with Close.
type Provider struct {
	mu     sync.Mutex
	ch     chan types.Transcript
	closed bool
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// New creates a mock Provider with a buffered transcript channel.
func New() *Provider {
	return &Provider{ch: make(chan types.Transcript, 16)}
}

// Stream returns the transcript channel. The ctx is ignored; tests control the
// stream lifetime via Close.
func (p *Provider) Stream(_ context.Context) (<-chan types.Transcript, error) {
	return p.ch, nil
}

// Emit pushes a transcript to the stream. It is a no-op after Close.
func (p *Provider) Emit(t types.Transcript) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.ch <- t
}

// Close closes the transcript channel. Safe to call multiple times.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
