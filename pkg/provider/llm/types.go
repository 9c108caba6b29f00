package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single entry in a conversation transcript sent to the model.
type Message struct {
	Role    string // one of the Role constants
	Content string

	// Name optionally identifies the participant or, on tool results, the
	// tool that produced the content.
	Name string

	// ToolCalls holds tool invocations the assistant requested; only set on
	// assistant messages.
	ToolCalls []ToolCall

	// ToolCallID links a RoleTool message back to the call it answers.
	ToolCallID string
}

// ToolCall is a single tool invocation requested by the model. Arguments is
// the raw JSON-encoded argument object as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDefinition advertises a callable tool to the model. Parameters is a
// JSON Schema object describing the tool's inputs.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ModelCapabilities reports what a configured model can do, letting callers
// size prompts and decide whether tool calling is available.
type ModelCapabilities struct {
	// ContextWindow is the combined input plus output token limit.
	ContextWindow int

	// MaxOutputTokens caps a single completion's length.
	MaxOutputTokens int

	SupportsToolCalling bool
	SupportsStreaming   bool
}
