// Package augment decides when a user turn warrants handbook evidence and
// renders retrieved passages into a context block for the reasoning model.
package augment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skylinemotors/concierge/internal/retrieval"
)

const (
	// BlockHeader introduces a handbook evidence block.
	BlockHeader = "Handbook reference (Skyline Motors dealer handbook):"

	// EmptyBlock is the block produced when retrieval yields nothing, fails,
	// or times out. The model is told explicitly that no evidence exists so
	// it does not invent any.
	EmptyBlock = "Handbook reference: no relevant sections found."

	// DefaultTimeout bounds a single retrieval attempt. A voice turn cannot
	// wait longer than this for evidence.
	DefaultTimeout = 3 * time.Second

	// DefaultTopK is the number of passages requested per augmented turn.
	DefaultTopK = 3

	// maxPassageLen truncates a rendered passage so a single long chunk
	// cannot crowd out the rest of the prompt.
	maxPassageLen = 600
)

// DefaultKeywords are the dealership topics that the handbook covers. A user
// turn mentioning any of them is augmented with handbook evidence.
func DefaultKeywords() []string {
	return []string{
		"warranty",
		"maintenance",
		"service interval",
		"oil change",
		"finance",
		"financing",
		"lease",
		"leasing",
		"apr",
		"interest rate",
		"down payment",
		"trim",
		"horsepower",
		"torque",
		"cargo",
		"mpg",
		"range",
	}
}

// Policy decides augmentation per turn and produces evidence blocks.
// All methods are safe for concurrent use once the Policy is constructed.
type Policy struct {
	client   retrieval.Client
	keywords []string
	topK     int
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithKeywords replaces the trigger vocabulary.
func WithKeywords(keywords []string) Option {
	return func(p *Policy) {
		if len(keywords) > 0 {
			p.keywords = keywords
		}
	}
}

// WithTopK sets the number of passages requested per turn.
func WithTopK(k int) Option {
	return func(p *Policy) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithTimeout bounds each retrieval attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Policy) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Policy backed by the given retrieval client.
func New(client retrieval.Client, opts ...Option) *Policy {
	p := &Policy{
		client:   client,
		keywords: DefaultKeywords(),
		topK:     DefaultTopK,
		timeout:  DefaultTimeout,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	// Matching is case-insensitive; normalise once.
	lowered := make([]string, len(p.keywords))
	for i, kw := range p.keywords {
		lowered[i] = strings.ToLower(kw)
	}
	p.keywords = lowered
	return p
}

// Decide reports whether the utterance should be augmented with handbook
// evidence. It is a pure function of the text: the same input always yields
// the same answer.
func (p *Policy) Decide(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range p.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BuildBlock retrieves evidence for the utterance and renders it as a prompt
// block. It never fails: retrieval errors, timeouts, and empty results all
// degrade to EmptyBlock.
func (p *Policy) BuildBlock(ctx context.Context, text string) string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	passages, err := p.client.Query(ctx, text, p.topK)
	if err != nil {
		p.log.Warn("handbook retrieval failed, continuing without evidence", "error", err)
		return EmptyBlock
	}
	if len(passages) == 0 {
		return EmptyBlock
	}

	var b strings.Builder
	b.WriteString(BlockHeader)
	for i, passage := range passages {
		fmt.Fprintf(&b, "\n%d. %s", i+1, renderPassage(passage.Text))
	}
	return b.String()
}

// renderPassage flattens a chunk to a single line and truncates it.
func renderPassage(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= maxPassageLen {
		return flat
	}
	return string(runes[:maxPassageLen]) + "..."
}
