// Package tts defines the text-to-speech boundary consumed by the session host.
//
// As with STT, the synthesis engine itself is an external collaborator; the
// core only needs to hand a response text to something that speaks it. Audio
// transport and playback are outside the concierge core.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile selects the synthesis voice.
type VoiceProfile struct {
	// Voice is the provider-specific voice identifier (e.g., "alloy").
	Voice string

	// SpeakingRate adjusts speed relative to the voice default (1.0 = normal).
	// Zero means use the default.
	SpeakingRate float64
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text to speech and returns a read-only channel
	// streaming raw audio bytes as they are produced. The channel is closed
	// when synthesis completes, fails mid-stream, or ctx is cancelled.
	//
	// Callers must drain the channel even if they do not use the audio.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (<-chan []byte, error)

	// Close releases the underlying connection. Safe to call multiple times.
	Close() error
}
