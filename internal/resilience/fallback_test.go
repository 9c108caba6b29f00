package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skylinemotors/concierge/pkg/provider/llm"
	llmmock "github.com/skylinemotors/concierge/pkg/provider/llm/mock"
)

func TestFallbackChainPrefersPrimary(t *testing.T) {
	t.Parallel()

	fc := NewFallbackChain("primary", "primary", BreakerConfig{})
	fc.AddFallback("secondary", "secondary")

	var used string
	err := fc.Try(func(v string) error {
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("Try: %v", err)
	}
	if used != "primary" {
		t.Errorf("used %q, want primary", used)
	}
}

func TestFallbackChainFallsThrough(t *testing.T) {
	t.Parallel()

	fc := NewFallbackChain("primary", "primary", BreakerConfig{})
	fc.AddFallback("secondary", "secondary")

	result, err := TryWithResult(fc, func(v string) (string, error) {
		if v == "primary" {
			return "", errBoom
		}
		return "from " + v, nil
	})
	if err != nil {
		t.Fatalf("TryWithResult: %v", err)
	}
	if result != "from secondary" {
		t.Errorf("result = %q", result)
	}
}

func TestFallbackChainAllFailed(t *testing.T) {
	t.Parallel()

	fc := NewFallbackChain("only", "only", BreakerConfig{})
	err := fc.Try(func(string) error { return errBoom })
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestFallbackChainSkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fc := NewFallbackChain("flaky", "flaky", BreakerConfig{TripAfter: 1, Cooldown: time.Hour})
	fc.AddFallback("steady", "steady")

	// Trip the primary's breaker.
	_ = fc.Try(func(v string) error {
		if v == "flaky" {
			return errBoom
		}
		return nil
	})

	var calls []string
	err := fc.Try(func(v string) error {
		calls = append(calls, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Try: %v", err)
	}
	if len(calls) != 1 || calls[0] != "steady" {
		t.Errorf("calls = %v, want only the fallback", calls)
	}
}

func TestReasoningFallbackFailsOver(t *testing.T) {
	t.Parallel()

	primary := &llmmock.Provider{CompleteErr: errBoom}
	secondary := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "backup answer"}},
	}

	rf := NewReasoningFallback(primary, "primary", BreakerConfig{})
	rf.AddFallback("secondary", secondary)

	resp, err := rf.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "backup answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 || len(secondary.CompleteCalls) != 1 {
		t.Errorf("primary called %d, secondary called %d", len(primary.CompleteCalls), len(secondary.CompleteCalls))
	}
}
