// Package events publishes transcript and turn lifecycle events to attached
// sinks, such as the showroom dashboard's WebSocket feed.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event kinds emitted over a session's lifetime.
const (
	KindUserTranscript      = "user_transcript"
	KindAssistantTranscript = "assistant_transcript"
	KindTurnStarted         = "turn_started"
	KindTurnCompleted       = "turn_completed"
	KindTurnInterrupted     = "turn_interrupted"
	KindToolInvoked         = "tool_invoked"
)

// Event is a single session occurrence, serialised as JSON on the wire.
type Event struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id,omitempty"`
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	IsFinal   bool      `json:"is_final,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives published events. Implementations must tolerate being called
// from a single goroutine in publish order; they should not block for long.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// defaultQueueSize bounds the publisher's buffer. A full queue drops new
// events rather than stalling the conversation.
const defaultQueueSize = 256

// Publisher fans events out to sinks from a single consumer goroutine, so
// every sink observes events in publish order. Publish never blocks the
// caller; sink errors are logged and swallowed.
type Publisher struct {
	log   *slog.Logger
	queue chan Event

	mu    sync.RWMutex
	sinks []Sink

	closeOnce sync.Once
	done      chan struct{}
}

// NewPublisher creates a Publisher and starts its delivery goroutine.
func NewPublisher(log *slog.Logger, sinks ...Sink) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		log:   log,
		queue: make(chan Event, defaultQueueSize),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// AddSink attaches a sink. Events already in flight may not reach it.
func (p *Publisher) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Publish enqueues an event. It never blocks: when the queue is full the
// event is dropped with a warning, since a slow dashboard must not stall a
// live conversation.
func (p *Publisher) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case p.queue <- ev:
	default:
		p.log.Warn("event queue full, dropping event", "kind", ev.Kind, "session", ev.SessionID)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		p.mu.RLock()
		sinks := make([]Sink, len(p.sinks))
		copy(sinks, p.sinks)
		p.mu.RUnlock()

		for _, s := range sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.Deliver(ctx, ev); err != nil {
				p.log.Warn("event sink delivery failed", "kind", ev.Kind, "error", err)
			}
			cancel()
		}
	}
}

// Close drains the queue, delivers what remains, and stops the delivery
// goroutine. Publish after Close panics.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
	})
}
