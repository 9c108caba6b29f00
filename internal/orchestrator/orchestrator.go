// Package orchestrator advances a conversation turn by turn.
//
// Each finalized user utterance becomes one [Turn]: the orchestrator decides
// whether to augment it with handbook evidence, calls the reasoning service,
// dispatches any requested tool calls (bounded rounds), and hands the final
// text to the voice path and the event stream. A new utterance arriving while
// a turn is live interrupts that turn: its in-flight work is cancelled
// fire-and-forget and its late results are discarded at the state gate.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/skylinemotors/concierge/internal/augment"
	"github.com/skylinemotors/concierge/internal/events"
	"github.com/skylinemotors/concierge/internal/observe"
	"github.com/skylinemotors/concierge/internal/tool"
	"github.com/skylinemotors/concierge/pkg/provider/llm"
	"github.com/skylinemotors/concierge/pkg/types"
)

// DefaultMaxToolRounds bounds reasoning/tool round trips per turn.
const DefaultMaxToolRounds = 4

// Voice is the outbound speech path. Speak blocks until the text has been
// handed off for synthesis (not until playback ends).
type Voice interface {
	Speak(ctx context.Context, text string) error
}

// Conversation is the turn-to-turn message history the orchestrator reads
// from and appends to. Implementations must be safe for concurrent use.
type Conversation interface {
	Messages(ctx context.Context) []llm.Message
	Append(msgs ...llm.Message)
}

// Config wires an Orchestrator's collaborators.
type Config struct {
	SessionID string

	// Provider is the reasoning service.
	Provider llm.Provider

	// Policy decides and builds handbook augmentation. Optional; nil skips
	// augmentation entirely.
	Policy *augment.Policy

	// Registry dispatches model-requested tool calls. Optional.
	Registry *tool.Registry

	// Publisher receives transcript and lifecycle events. Optional.
	Publisher *events.Publisher

	// Voice speaks completed responses. Optional.
	Voice Voice

	// History is the shared conversation context. Optional.
	History Conversation

	// SystemPrompt is sent as the leading system message on every reasoning
	// call.
	SystemPrompt string

	// MaxToolRounds bounds tool round trips. Defaults to
	// DefaultMaxToolRounds.
	MaxToolRounds int

	// Temperature for reasoning calls.
	Temperature float64

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Orchestrator owns the per-conversation turn state machine.
type Orchestrator struct {
	cfg Config
	log *slog.Logger
	met *observe.Metrics

	mu      sync.Mutex
	current *Turn

	wg sync.WaitGroup
}

// New validates cfg and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, errors.New("orchestrator: config: provider is required")
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Orchestrator{
		cfg: cfg,
		log: cfg.Logger.With("session", cfg.SessionID),
		met: cfg.Metrics,
	}, nil
}

// HandleUtterance accepts a user utterance. Non-final utterances and
// assistant echoes are ignored. A final user utterance interrupts any live
// turn and starts a new one; the call returns as soon as the new turn is
// installed, never waiting for the old turn's work to unwind.
func (o *Orchestrator) HandleUtterance(ctx context.Context, utt types.Utterance) {
	if !utt.IsFinal || utt.Speaker != types.SpeakerUser {
		return
	}

	turnCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := newTurn(utt, cancel)

	o.mu.Lock()
	old := o.current
	o.current = t
	o.mu.Unlock()

	if old != nil && old.interrupt() {
		o.met.Interruptions.Add(turnCtx, 1)
		o.met.RecordTurn(turnCtx, "interrupted")
		o.log.Info("turn interrupted by new utterance", "turn", old.ID, "next", t.ID)
		o.publish(events.Event{
			Kind:   events.KindTurnInterrupted,
			TurnID: old.ID,
		})
	}

	o.publish(events.Event{
		Kind:    events.KindUserTranscript,
		TurnID:  t.ID,
		Speaker: string(types.SpeakerUser),
		Text:    utt.Text,
		IsFinal: true,
	})
	o.publish(events.Event{Kind: events.KindTurnStarted, TurnID: t.ID})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.runTurn(turnCtx, t)
	}()
}

// CurrentTurn returns the most recently started turn, or nil before the
// first utterance.
func (o *Orchestrator) CurrentTurn() *Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Wait blocks until all started turn goroutines have finished. Interrupted
// turns finish as soon as they hit their next state gate.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) runTurn(ctx context.Context, t *Turn) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "concierge.turn",
		trace.WithAttributes(attribute.String("turn.id", t.ID)))
	defer span.End()

	if !t.advance(StateAugmenting) {
		return
	}
	var block string
	if o.cfg.Policy != nil && o.cfg.Policy.Decide(t.Input.Text) {
		retrStart := time.Now()
		block = o.cfg.Policy.BuildBlock(ctx, t.Input.Text)
		o.met.RetrievalDuration.Record(ctx, time.Since(retrStart).Seconds())
		o.met.AugmentedTurns.Add(ctx, 1)
		t.setAugmentation(block)
	}

	msgs := o.baseMessages(ctx, t, block)
	var tools []llm.ToolDefinition
	if o.cfg.Registry != nil {
		tools = o.cfg.Registry.Definitions()
	}

	for round := 0; ; round++ {
		if !t.advance(StateReasoning) {
			return
		}

		reqStart := time.Now()
		resp, err := o.cfg.Provider.Complete(ctx, llm.CompletionRequest{
			Messages:     msgs,
			Tools:        tools,
			Temperature:  o.cfg.Temperature,
			SystemPrompt: o.cfg.SystemPrompt,
		})
		o.met.ReasoningDuration.Record(ctx, time.Since(reqStart).Seconds())
		if err == nil && resp == nil {
			err = errors.New("orchestrator: reasoning service returned no response")
		}
		if err != nil {
			if t.State() == StateInterrupted || ctx.Err() != nil {
				return
			}
			observe.RecordFailure(span, err)
			o.log.Error("reasoning service failed", "turn", t.ID, "error", err)
			o.respond(ctx, t, FallbackReasoningFailure, "reasoning_error", start)
			return
		}

		if len(resp.ToolCalls) == 0 {
			o.respond(ctx, t, resp.Content, "complete", start)
			return
		}

		if round >= o.cfg.MaxToolRounds {
			observe.RecordFailure(span, ErrToolLoopExceeded)
			o.log.Warn("tool round limit hit, falling back",
				"turn", t.ID, "rounds", round, "error", ErrToolLoopExceeded)
			o.respond(ctx, t, FallbackToolLoop, "tool_loop", start)
			return
		}

		if !t.advance(StateToolDispatch) {
			return
		}
		results := o.dispatchTools(ctx, t, resp.ToolCalls)

		msgs = append(msgs, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		// Results go back in request order regardless of completion order.
		for i, call := range resp.ToolCalls {
			msgs = append(msgs, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    results[i].Content,
			})
		}
	}
}

// baseMessages assembles the reasoning request prefix: prior conversation,
// the evidence block as an extra system message (never replacing the user's
// words), then the utterance itself.
func (o *Orchestrator) baseMessages(ctx context.Context, t *Turn, block string) []llm.Message {
	var msgs []llm.Message
	if o.cfg.History != nil {
		msgs = append(msgs, o.cfg.History.Messages(ctx)...)
	}
	if block != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: block})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: t.Input.Text})
	return msgs
}

// dispatchTools runs one round's calls concurrently and returns results
// indexed by request position.
func (o *Orchestrator) dispatchTools(ctx context.Context, t *Turn, calls []llm.ToolCall) []tool.Result {
	results := make([]tool.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			res := o.cfg.Registry.Invoke(gctx, call)
			results[i] = res

			status := "ok"
			if res.IsError {
				status = "error"
			}
			o.met.RecordToolCall(gctx, call.Name, status)
			o.met.ToolDuration.Record(gctx, res.Duration.Seconds())
			return nil
		})
	}
	_ = g.Wait()

	invs := make([]ToolInvocation, len(calls))
	for i, call := range calls {
		invs[i] = ToolInvocation{Name: call.Name, Arguments: call.Arguments, Result: results[i]}
		o.publish(events.Event{
			Kind:   events.KindToolInvoked,
			TurnID: t.ID,
			Tool:   call.Name,
		})
	}
	t.recordToolCalls(invs)
	return results
}

// respond finishes the turn with text. The advance to Responding is the
// discard gate: a turn interrupted while reasoning fails it, and nothing of
// the late result is spoken, published, or remembered.
func (o *Orchestrator) respond(ctx context.Context, t *Turn, text, outcome string, started time.Time) {
	if !t.advance(StateResponding) {
		o.log.Debug("discarding late result for finished turn", "turn", t.ID)
		return
	}
	t.setResponse(text)

	if o.cfg.Voice != nil {
		if err := o.cfg.Voice.Speak(ctx, text); err != nil && ctx.Err() == nil {
			o.log.Error("speech output failed", "turn", t.ID, "error", err)
		}
	}

	o.publish(events.Event{
		Kind:    events.KindAssistantTranscript,
		TurnID:  t.ID,
		Speaker: string(types.SpeakerAssistant),
		Text:    text,
		IsFinal: true,
	})

	if t.advance(StateComplete) {
		if o.cfg.History != nil {
			o.cfg.History.Append(
				llm.Message{Role: llm.RoleUser, Content: t.Input.Text},
				llm.Message{Role: llm.RoleAssistant, Content: text},
			)
		}
		o.publish(events.Event{Kind: events.KindTurnCompleted, TurnID: t.ID})
		o.met.RecordTurn(ctx, outcome)
		o.met.TurnDuration.Record(ctx, time.Since(started).Seconds())
		o.log.Info("turn complete", "turn", t.ID, "outcome", outcome,
			"duration", time.Since(started))
	}
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.cfg.Publisher == nil {
		return
	}
	ev.SessionID = o.cfg.SessionID
	o.cfg.Publisher.Publish(ev)
}
