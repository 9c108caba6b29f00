package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skylinemotors/concierge/internal/observe"
	"github.com/skylinemotors/concierge/internal/orchestrator"
	"github.com/skylinemotors/concierge/internal/transcript"
	"github.com/skylinemotors/concierge/pkg/provider/stt"
	"github.com/skylinemotors/concierge/pkg/provider/tts"
	"github.com/skylinemotors/concierge/pkg/types"
)

// HostConfig wires a Host's collaborators.
type HostConfig struct {
	SessionID string

	// STT is the inbound speech-to-text stream.
	STT stt.Provider

	// Corrector rewrites misheard vehicle names before orchestration.
	// Optional; nil passes transcripts through unchanged.
	Corrector *transcript.Corrector

	// Orchestrator receives finalized utterances.
	Orchestrator *orchestrator.Orchestrator

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Host runs one conversation: it pumps the STT stream into the orchestrator
// until the stream ends or the context is cancelled.
type Host struct {
	cfg HostConfig
	log *slog.Logger
	met *observe.Metrics
}

// NewHost validates cfg and returns a Host.
func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.STT == nil {
		return nil, errors.New("session: config: STT provider is required")
	}
	if cfg.Orchestrator == nil {
		return nil, errors.New("session: config: orchestrator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Host{
		cfg: cfg,
		log: cfg.Logger.With("session", cfg.SessionID),
		met: cfg.Metrics,
	}, nil
}

// Run consumes the STT stream. Interim transcripts are dropped; finals are
// corrected and handed to the orchestrator, which never blocks this loop for
// longer than it takes to install a turn. Run returns when the stream closes
// or ctx is cancelled, after waiting for in-flight turns to settle.
func (h *Host) Run(ctx context.Context) error {
	transcripts, err := h.cfg.STT.Stream(ctx)
	if err != nil {
		return fmt.Errorf("session: open STT stream: %w", err)
	}

	h.met.ActiveSessions.Add(ctx, 1)
	defer h.met.ActiveSessions.Add(ctx, -1)
	h.log.Info("session started")

	for {
		select {
		case <-ctx.Done():
			h.cfg.Orchestrator.Wait()
			h.log.Info("session cancelled")
			return ctx.Err()
		case tr, ok := <-transcripts:
			if !ok {
				h.cfg.Orchestrator.Wait()
				h.log.Info("session ended, STT stream closed")
				return nil
			}
			if !tr.IsFinal {
				continue
			}
			text := tr.Text
			if h.cfg.Corrector != nil {
				corrected := h.cfg.Corrector.Correct(text)
				if corrected != text {
					h.log.Debug("transcript corrected", "heard", text, "corrected", corrected)
					text = corrected
				}
			}
			h.cfg.Orchestrator.HandleUtterance(ctx, types.Utterance{
				Speaker:   types.SpeakerUser,
				Text:      text,
				IsFinal:   true,
				Timestamp: time.Now(),
			})
		}
	}
}

// AudioSink carries synthesized audio toward the transport layer.
type AudioSink interface {
	WriteFrame(ctx context.Context, frame []byte) error
}

// SpeechOutput adapts a TTS provider and an audio sink into the
// orchestrator's Voice. Speak returns once all synthesized frames have been
// handed to the sink.
type SpeechOutput struct {
	tts     tts.Provider
	profile tts.VoiceProfile
	sink    AudioSink
}

var _ orchestrator.Voice = (*SpeechOutput)(nil)

// NewSpeechOutput creates a SpeechOutput speaking with profile into sink.
func NewSpeechOutput(provider tts.Provider, profile tts.VoiceProfile, sink AudioSink) *SpeechOutput {
	return &SpeechOutput{tts: provider, profile: profile, sink: sink}
}

// Speak implements orchestrator.Voice.
func (s *SpeechOutput) Speak(ctx context.Context, text string) error {
	frames, err := s.tts.Synthesize(ctx, text, s.profile)
	if err != nil {
		return fmt.Errorf("session: synthesize: %w", err)
	}
	for frame := range frames {
		if err := s.sink.WriteFrame(ctx, frame); err != nil {
			return fmt.Errorf("session: write audio frame: %w", err)
		}
	}
	return nil
}
