package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/skylinemotors/concierge/internal/tool"
	"github.com/skylinemotors/concierge/pkg/types"
)

// TurnState tracks a conversation turn through its lifecycle.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAugmenting
	StateReasoning
	StateToolDispatch
	StateResponding
	StateComplete
	StateInterrupted
)

// String implements fmt.Stringer.
func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAugmenting:
		return "augmenting"
	case StateReasoning:
		return "reasoning"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateResponding:
		return "responding"
	case StateComplete:
		return "complete"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final. Terminal turns are immutable.
func (s TurnState) Terminal() bool {
	return s == StateComplete || s == StateInterrupted
}

// ToolInvocation records one tool call made during a turn.
type ToolInvocation struct {
	Name      string
	Arguments string
	Result    tool.Result
}

// Turn is the unit of orchestration work for one final user utterance. It is
// owned by the orchestrator; once a terminal state is reached the turn is
// never mutated again.
type Turn struct {
	ID    string
	Input types.Utterance

	mu           sync.Mutex
	state        TurnState
	cancel       context.CancelFunc
	augmentBlock string
	toolCalls    []ToolInvocation
	responseText string
}

func newTurn(input types.Utterance, cancel context.CancelFunc) *Turn {
	return &Turn{
		ID:     uuid.NewString(),
		Input:  input,
		state:  StateIdle,
		cancel: cancel,
	}
}

// State returns the current state.
func (t *Turn) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// advance moves the turn to next, unless a terminal state was already
// reached. The false return is the discard gate for late results: any work
// finishing after an interruption fails to advance and must drop its output.
func (t *Turn) advance(next TurnState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return false
	}
	t.state = next
	return true
}

// interrupt marks the turn Interrupted and cancels its in-flight work. It
// reports whether the turn was still live; interrupting a terminal turn is a
// no-op.
func (t *Turn) interrupt() bool {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.state = StateInterrupted
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// setAugmentation records the evidence block built for this turn.
func (t *Turn) setAugmentation(block string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.augmentBlock = block
}

// Augmentation returns the evidence block, if any was built.
func (t *Turn) Augmentation() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.augmentBlock
}

// recordToolCalls appends one dispatch round's invocations in request order.
func (t *Turn) recordToolCalls(invs []ToolInvocation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toolCalls = append(t.toolCalls, invs...)
}

// ToolCalls returns all invocations recorded so far, in request order.
func (t *Turn) ToolCalls() []ToolInvocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ToolInvocation, len(t.toolCalls))
	copy(out, t.toolCalls)
	return out
}

// setResponse records the final response text.
func (t *Turn) setResponse(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responseText = text
}

// Response returns the final response text, empty until Responding.
func (t *Turn) Response() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.responseText
}
