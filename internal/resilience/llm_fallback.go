package resilience

import (
	"context"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
)

// ReasoningFallback implements [llm.Provider] with automatic failover across
// reasoning backends. Wrap the orchestrator's provider in one of these and a
// dead primary degrades to the fallback model instead of to the apology line.
type ReasoningFallback struct {
	chain *FallbackChain[llm.Provider]
}

var _ llm.Provider = (*ReasoningFallback)(nil)

// NewReasoningFallback creates a ReasoningFallback preferring primary.
func NewReasoningFallback(primary llm.Provider, primaryName string, breaker BreakerConfig) *ReasoningFallback {
	return &ReasoningFallback{
		chain: NewFallbackChain(primary, primaryName, breaker),
	}
}

// AddFallback registers an additional reasoning backend.
func (f *ReasoningFallback) AddFallback(name string, provider llm.Provider) {
	f.chain.AddFallback(name, provider)
}

// Complete sends req to the first healthy backend.
func (f *ReasoningFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return TryWithResult(f.chain, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// StreamCompletion opens a stream on the first healthy backend. Failover
// covers only the initial connection; mid-stream errors belong to the caller.
func (f *ReasoningFallback) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return TryWithResult(f.chain, func(p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// CountTokens delegates to the first healthy backend's counter.
func (f *ReasoningFallback) CountTokens(messages []llm.Message) (int, error) {
	return TryWithResult(f.chain, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// Capabilities reports the primary's capabilities; static metadata does not
// participate in failover.
func (f *ReasoningFallback) Capabilities() llm.ModelCapabilities {
	return f.chain.Primary().Capabilities()
}
