// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/skylinemotors/concierge/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider. It records every text
// passed to Synthesize and emits a single fixed audio frame per call.
type Provider struct {
	mu sync.Mutex

	// SynthesizeErr, if non-nil, is returned from Synthesize.
	SynthesizeErr error

	// Frame is the audio payload emitted for each call. Defaults to a short
	// placeholder chunk when nil.
	Frame []byte

	// SynthesizeCalls records every text passed to Synthesize in order.
	SynthesizeCalls []string
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns a channel carrying one frame.
func (p *Provider) Synthesize(ctx context.Context, text string, _ tts.VoiceProfile) (<-chan []byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, text)
	err := p.SynthesizeErr
	frame := p.Frame
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if frame == nil {
		frame = []byte{0x00, 0x01}
	}

	ch := make(chan []byte, 1)
	go func() {
		defer close(ch)
		select {
		case ch <- frame:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// Calls returns a snapshot of recorded synthesize texts.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}
