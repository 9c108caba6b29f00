// Package stt defines the speech-to-text boundary consumed by the session host.
//
// The concierge core does not own the STT engine — real transcription runs in
// an external collaborator (cloud STT, an on-prem model, or a plain text
// channel). The core only requires a push stream of [types.Transcript] values,
// of which only final transcripts are actionable by the orchestrator.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/skylinemotors/concierge/pkg/types"
)

// Provider is the abstraction over any transcript source.
type Provider interface {
	// Stream starts (or attaches to) the transcript stream and returns a
	// read-only channel of transcripts. Both partial and final transcripts may
	// be emitted; consumers filter on [types.Transcript.IsFinal].
	//
	// The channel is closed when the underlying source ends or when ctx is
	// cancelled. Stream may be called at most once per Provider instance.
	Stream(ctx context.Context) (<-chan types.Transcript, error)

	// Close releases the underlying connection. Safe to call multiple times.
	Close() error
}
