package session

import (
	"context"
	"testing"
	"time"

	"github.com/skylinemotors/concierge/internal/orchestrator"
	"github.com/skylinemotors/concierge/internal/transcript"
	"github.com/skylinemotors/concierge/pkg/provider/llm"
	llmmock "github.com/skylinemotors/concierge/pkg/provider/llm/mock"
	sttmock "github.com/skylinemotors/concierge/pkg/provider/stt/mock"
	"github.com/skylinemotors/concierge/pkg/provider/tts"
	ttsmock "github.com/skylinemotors/concierge/pkg/provider/tts/mock"
	"github.com/skylinemotors/concierge/pkg/types"
)

func TestHostPumpsFinalTranscripts(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "Sure thing."}},
	}
	orch, err := orchestrator.New(orchestrator.Config{
		SessionID: "host-test",
		Provider:  provider,
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	source := sttmock.New()
	host, err := NewHost(HostConfig{
		SessionID:    "host-test",
		STT:          source,
		Corrector:    transcript.New(nil),
		Orchestrator: orch,
	})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}

	source.Emit(types.Transcript{Text: "does the hor", IsFinal: false})
	source.Emit(types.Transcript{Text: "does the horizen come in red", IsFinal: true})
	source.Close()

	if err := host.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("provider called %d times, want 1 (interim transcript must be dropped)", len(provider.CompleteCalls))
	}
	msgs := provider.CompleteCalls[0].Req.Messages
	last := msgs[len(msgs)-1]
	if last.Content != "does the Horizon come in red" {
		t.Errorf("utterance = %q, want the corrected model name", last.Content)
	}
}

func TestHostStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	orch, err := orchestrator.New(orchestrator.Config{Provider: &llmmock.Provider{}})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	source := sttmock.New()
	defer source.Close()

	host, err := NewHost(HostConfig{STT: source, Orchestrator: orch})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- host.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) WriteFrame(_ context.Context, frame []byte) error {
	r.frames = append(r.frames, frame)
	return nil
}

func TestSpeechOutputSpeaksThroughSink(t *testing.T) {
	t.Parallel()

	provider := &ttsmock.Provider{Frame: []byte("pcm")}
	sink := &frameRecorder{}
	out := NewSpeechOutput(provider, tts.VoiceProfile{Voice: "alloy"}, sink)

	if err := out.Speak(context.Background(), "Welcome to Skyline Motors"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if calls := provider.Calls(); len(calls) != 1 || calls[0] != "Welcome to Skyline Motors" {
		t.Errorf("synthesize calls = %v", calls)
	}
	if len(sink.frames) != 1 || string(sink.frames[0]) != "pcm" {
		t.Errorf("frames = %v", sink.frames)
	}
}
