package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
)

// Registry holds the tools available to the concierge and dispatches
// invocations against them. Registration and invocation are safe for
// concurrent use.
type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	tools map[string]*entry
}

type entry struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:   log,
		tools: make(map[string]*entry),
	}
}

// Register adds a tool. The tool's schema is compiled once here; invalid
// schemas and duplicate names are registration-time errors.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool: register: name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool: register %q: handler is required", t.Name)
	}
	if t.Schema == nil {
		t.Schema = map[string]any{"type": "object"}
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Schema))
	if err != nil {
		return fmt.Errorf("tool: register %q: compile schema: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool: register %q: already registered", t.Name)
	}
	r.tools[t.Name] = &entry{tool: t, schema: compiled}
	r.log.Debug("tool registered", "name", t.Name)
	return nil
}

// Definitions returns the registered tools as model-facing definitions,
// sorted by name so the prompt is stable across runs.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, e := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        e.tool.Name,
			Description: e.tool.Description,
			Parameters:  e.tool.Schema,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke runs a single model-issued tool call. It never returns an error for
// per-call failures: unknown tools, malformed arguments, schema violations,
// and handler errors all come back as Results with IsError set, so one bad
// call cannot sink the turn.
func (r *Registry) Invoke(ctx context.Context, call llm.ToolCall) Result {
	res := Result{Name: call.Name, CallID: call.ID}

	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		res.IsError = true
		res.Content = fmt.Sprintf("unknown tool %q", call.Name)
		r.log.Warn("model called unknown tool", "name", call.Name)
		return res
	}

	args := call.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	if !json.Valid([]byte(args)) {
		res.IsError = true
		res.Content = fmt.Sprintf("arguments for %q are not valid JSON", call.Name)
		r.log.Warn("tool call with malformed arguments", "name", call.Name)
		return res
	}

	validation, err := e.schema.Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		res.IsError = true
		res.Content = fmt.Sprintf("arguments for %q could not be validated: %v", call.Name, err)
		return res
	}
	if !validation.Valid() {
		res.IsError = true
		res.Content = fmt.Sprintf("invalid arguments for %q: %s", call.Name, formatSchemaErrors(validation))
		r.log.Warn("tool call failed schema validation", "name", call.Name, "detail", res.Content)
		return res
	}

	start := time.Now()
	out, err := e.tool.Handler(ctx, args)
	res.Duration = time.Since(start)
	if err != nil {
		res.IsError = true
		res.Content = fmt.Sprintf("tool %q failed: %v", call.Name, err)
		r.log.Error("tool handler failed", "name", call.Name, "error", err, "duration", res.Duration)
		return res
	}

	res.Content = out
	r.log.Debug("tool invoked", "name", call.Name, "duration", res.Duration)
	return res
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
