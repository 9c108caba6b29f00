package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
)

// charsPerToken is the heuristic ratio for token estimation. English text
// averages roughly 4 characters per token across common tokenizers, which is
// close enough for a compaction threshold.
const charsPerToken = 4

// HistoryConfig configures a [History].
type HistoryConfig struct {
	// MaxTokens is the model's context window size (e.g. 128000).
	MaxTokens int

	// ThresholdRatio is the fraction of MaxTokens at which older messages
	// are compacted. Defaults to 0.75.
	ThresholdRatio float64

	// Summariser compresses older messages. When nil the oldest messages
	// are dropped instead of summarised.
	Summariser Summariser

	// Logger for compaction events. Defaults to slog.Default().
	Logger *slog.Logger
}

// History is the conversation message log shared between turns. When the
// estimated token count crosses the threshold, the oldest half of the
// messages is replaced by a compact summary so long sessions stay inside the
// model's window.
//
// History implements the orchestrator's Conversation interface and is safe
// for concurrent use.
type History struct {
	maxTokens      int
	thresholdRatio float64
	summariser     Summariser
	log            *slog.Logger

	mu        sync.Mutex
	tokens    int
	messages  []llm.Message
	summaries []string
}

// NewHistory creates an empty History.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.ThresholdRatio <= 0 {
		cfg.ThresholdRatio = 0.75
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &History{
		maxTokens:      cfg.MaxTokens,
		thresholdRatio: cfg.ThresholdRatio,
		summariser:     cfg.Summariser,
		log:            cfg.Logger,
	}
}

// Append adds completed-turn messages to the log.
func (h *History) Append(msgs ...llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		h.messages = append(h.messages, m)
		h.tokens += estimateTokens(m)
	}
}

// Messages returns the history ready to prepend to a reasoning request:
// accumulated summaries as system context, then the retained messages. When
// the token estimate has crossed the threshold, older messages are compacted
// first.
func (h *History) Messages(ctx context.Context) []llm.Message {
	h.compactIfNeeded(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, 0, len(h.summaries)+len(h.messages))
	for _, s := range h.summaries {
		out = append(out, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Earlier in this conversation: " + s,
		})
	}
	out = append(out, h.messages...)
	return out
}

// TokenEstimate returns the estimated token count of retained messages and
// summaries.
func (h *History) TokenEstimate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tokens
}

// Reset clears the log.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
	h.summaries = h.summaries[:0]
	h.tokens = 0
}

// compactIfNeeded summarises (or, without a summariser, drops) the oldest
// half of the messages once the threshold is crossed. A summarisation failure
// is logged and compaction retried on the next call.
func (h *History) compactIfNeeded(ctx context.Context) {
	h.mu.Lock()
	threshold := int(float64(h.maxTokens) * h.thresholdRatio)
	if h.maxTokens <= 0 || h.tokens <= threshold || len(h.messages) < 2 {
		h.mu.Unlock()
		return
	}
	half := len(h.messages) / 2
	oldest := make([]llm.Message, half)
	copy(oldest, h.messages[:half])
	h.mu.Unlock()

	var summary string
	if h.summariser != nil {
		var err error
		summary, err = h.summariser.Summarise(ctx, oldest)
		if err != nil {
			h.log.Warn("history compaction failed, keeping full log for now", "error", err)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// The log may have grown while summarising; only drop what was covered.
	if half > len(h.messages) {
		half = len(h.messages)
	}
	h.messages = append([]llm.Message(nil), h.messages[half:]...)
	if summary != "" {
		h.summaries = append(h.summaries, summary)
	}
	h.tokens = 0
	for _, m := range h.messages {
		h.tokens += estimateTokens(m)
	}
	for _, s := range h.summaries {
		h.tokens += len(s) / charsPerToken
	}
	h.log.Debug("history compacted", "dropped", half, "retained", len(h.messages))
}

func estimateTokens(m llm.Message) int {
	// Small per-message overhead for role framing.
	return len(m.Content)/charsPerToken + 4
}
