package orchestrator

import "errors"

// Turn-level failure kinds. Only ErrToolLoopExceeded and reasoning failures
// ever become user-visible, and then only as the fallback lines below.
// ErrToolLoopExceeded indicates the model kept requesting tools past the
// configured round limit.
var ErrToolLoopExceeded = errors.New("orchestrator: tool call rounds exceeded")

// User-facing fallback lines. Spoken verbatim, so they are phrased for voice.
const (
	// FallbackReasoningFailure is spoken when the reasoning service fails.
	FallbackReasoningFailure = "I'm sorry, I'm having trouble answering right now. Could you repeat that?"

	// FallbackToolLoop is spoken when the tool round limit is hit.
	FallbackToolLoop = "I'm not sure about that one. Let me connect you with one of our human representatives."
)
