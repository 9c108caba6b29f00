// Package session hosts one live concierge conversation: it consumes the
// speech-to-text stream, feeds finalized utterances through the transcript
// corrector into the orchestrator, keeps the conversation history within the
// model's context window, and carries responses out through text-to-speech.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
)

// summarisationPrompt asks the model to compress older conversation while
// keeping everything a car sale hinges on.
const summarisationPrompt = `Summarise the following conversation between a car dealership concierge and a customer.
Preserve: the customer's name and contact details, vehicles and trims discussed, budget
constraints, financing or warranty questions, and any test drive arrangements.
Be concise but keep every detail a salesperson would need.`

// Summariser produces a concise summary of a conversation segment.
type Summariser interface {
	Summarise(ctx context.Context, messages []llm.Message) (string, error)
}

// LLMSummariser summarises conversations with an LLM provider.
type LLMSummariser struct {
	llm llm.Provider
}

// NewLLMSummariser creates an LLMSummariser backed by provider.
func NewLLMSummariser(provider llm.Provider) *LLMSummariser {
	return &LLMSummariser{llm: provider}
}

// Summarise formats messages into a transcript and asks the model for a
// condensed summary.
func (s *LLMSummariser) Summarise(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, m := range messages {
		// Tool traffic is raw JSON; the spoken exchange is what matters here.
		if m.Role == llm.RoleTool || m.Content == "" {
			continue
		}
		speaker := m.Role
		if m.Name != "" {
			speaker = m.Name
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", speaker, m.Content)
	}
	if sb.Len() == 0 {
		return "", nil
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summarisationPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: sb.String()},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}
