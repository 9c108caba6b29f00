// Package types defines the shared types used across all concierge packages.
//
// These types form the lingua franca between the STT boundary, the turn
// orchestrator, and the event publisher. They are intentionally minimal — each
// package defines its own domain types, but cross-cutting data structures live
// here to avoid circular imports.
package types

import "time"

// Speaker identifies who produced an utterance or transcript event.
type Speaker string

const (
	// SpeakerUser is the customer on the voice or text channel.
	SpeakerUser Speaker = "user"

	// SpeakerAssistant is the concierge agent.
	SpeakerAssistant Speaker = "assistant"
)

// IsValid reports whether s is a recognised speaker.
func (s Speaker) IsValid() bool {
	return s == SpeakerUser || s == SpeakerAssistant
}

// Utterance is a single speaker's finalized unit of speech or text within a
// conversation. Only utterances with IsFinal set trigger orchestration;
// partial utterances are informational. An Utterance is immutable once created.
type Utterance struct {
	// Speaker identifies who said it.
	Speaker Speaker

	// Text is the utterance content.
	Text string

	// IsFinal indicates the STT engine (or text channel) has committed this
	// text and will not revise it.
	IsFinal bool

	// Timestamp marks when the utterance became final.
	Timestamp time.Time
}

// Transcript represents a speech-to-text result from an STT provider.
// Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the
	// provider does not report confidence.
	Confidence float64

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}
