// Package llm defines the reasoning provider interface the orchestrator talks
// to. Implementations wrap a remote or local model API (OpenAI, Anthropic via
// any-llm-go, a local Ollama instance) behind a uniform surface for
// completions, token counting and capability inspection.
//
// Implementations must be safe for concurrent use, and channels returned by
// StreamCompletion must be closed when the stream ends or ctx is cancelled.
package llm

import "context"

// Usage is the token accounting a backend reports for one request/response
// pair. Counts are in the model's native token unit.
type Usage struct {
	PromptTokens     int
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens; some backends return it
	// directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries one reasoning request. Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation transcript; the last entry drives
	// the response.
	Messages []Message

	// Tools the model may call this round.
	Tools []ToolDefinition

	// Temperature controls output randomness in [0.0, 2.0].
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int

	// SystemPrompt is injected ahead of Messages. Backends without a native
	// system slot prepend it as a RoleSystem message.
	SystemPrompt string
}

// Chunk is one fragment of a streaming completion. Any combination of text,
// tool calls and a finish signal may arrive in a single chunk.
type Chunk struct {
	Text string

	// FinishReason is set on the final chunk: "stop", "length", "tool_calls",
	// or "error" when the stream broke mid-generation.
	FinishReason string

	ToolCalls []ToolCall
}

// CompletionResponse is the result of a blocking Complete call.
type CompletionResponse struct {
	// Content is the assistant's reply text. Empty when the model answered
	// with tool calls only.
	Content string

	// ToolCalls the model requested; the caller executes them and feeds the
	// results back as RoleTool messages.
	ToolCalls []ToolCall

	Usage Usage
}

// Provider abstracts an LLM backend. Methods must honour ctx cancellation
// promptly: return, or close the stream channel, as soon as ctx is done.
type Provider interface {
	// StreamCompletion starts a streaming completion. The returned channel is
	// closed when generation finishes or ctx is cancelled, and callers must
	// drain it. Errors after the stream opens arrive as a Chunk with
	// FinishReason "error"; the error return covers only failures to start.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan Chunk, error)

	// Complete blocks until the full response arrives or ctx is cancelled.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates how many context-window tokens messages would
	// consume. Estimates should not undercount.
	CountTokens(messages []Message) (int, error)

	// Capabilities reports static model metadata, constant for the lifetime
	// of the Provider.
	Capabilities() ModelCapabilities
}
