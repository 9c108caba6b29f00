// Package tool defines the concierge's callable tools and the registry that
// validates and dispatches model-issued invocations.
package tool

import (
	"context"
	"time"
)

// Handler executes a tool call. args is the raw JSON argument object, already
// validated against the tool's schema. The returned string is handed back to
// the model verbatim, so handlers should produce compact JSON or short prose.
type Handler func(ctx context.Context, args string) (string, error)

// Tool pairs a model-facing definition with its handler.
type Tool struct {
	// Name is the tool's unique identifier, as the model will call it.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Schema is the JSON Schema for the tool's argument object.
	Schema map[string]any

	// Handler executes the call.
	Handler Handler
}

// Result is the outcome of one tool invocation. Failures are carried as data
// rather than errors so the model can react to them in its next round.
type Result struct {
	// Name of the invoked tool.
	Name string

	// CallID echoes the model's tool call ID.
	CallID string

	// Content is the tool output, or a short error description when IsError
	// is set.
	Content string

	// IsError marks validation failures, unknown tools, and handler errors.
	IsError bool

	// Duration is the handler's wall-clock execution time. Zero when the
	// call never reached a handler.
	Duration time.Duration
}
