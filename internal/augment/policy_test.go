package augment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skylinemotors/concierge/internal/retrieval"
	retrievalmock "github.com/skylinemotors/concierge/internal/retrieval/mock"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	p := New(&retrievalmock.Client{})

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "warranty question", text: "What does the warranty cover on the Aurora?", want: true},
		{name: "uppercase keyword", text: "Tell me about FINANCING options", want: true},
		{name: "keyword inside sentence", text: "how many horsepower does it make", want: true},
		{name: "multi-word keyword", text: "what's the service interval on the Trailrunner", want: true},
		{name: "small talk", text: "Hi there, how are you today?", want: false},
		{name: "inventory question", text: "Do you have any SUVs under forty thousand?", want: false},
		{name: "empty", text: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Decide(tt.text); got != tt.want {
				t.Errorf("Decide(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDecideDeterministic(t *testing.T) {
	t.Parallel()

	p := New(&retrievalmock.Client{})
	const text = "is there a down payment required for the lease"
	first := p.Decide(text)
	for i := 0; i < 10; i++ {
		if got := p.Decide(text); got != first {
			t.Fatalf("Decide changed answer on call %d", i+2)
		}
	}
}

func TestDecideCustomKeywords(t *testing.T) {
	t.Parallel()

	p := New(&retrievalmock.Client{}, WithKeywords([]string{"Towing"}))
	if !p.Decide("what is the towing capacity") {
		t.Error("custom keyword did not trigger")
	}
	if p.Decide("what does the warranty cover") {
		t.Error("default keyword still triggers after replacement")
	}
}

func TestBuildBlockRendersPassages(t *testing.T) {
	t.Parallel()

	client := &retrievalmock.Client{
		Passages: []retrieval.Passage{
			{Text: "Powertrain warranty:\n5 years or 60,000 miles.", Score: 0.91, Rank: 1},
			{Text: "Bumper-to-bumper coverage lasts 3 years.", Score: 0.84, Rank: 2},
		},
	}
	p := New(client)

	block := p.BuildBlock(context.Background(), "what does the warranty cover")
	want := BlockHeader +
		"\n1. Powertrain warranty: 5 years or 60,000 miles." +
		"\n2. Bumper-to-bumper coverage lasts 3 years."
	if block != want {
		t.Errorf("block = %q, want %q", block, want)
	}
}

func TestBuildBlockTruncatesLongPassage(t *testing.T) {
	t.Parallel()

	client := &retrievalmock.Client{
		Passages: []retrieval.Passage{{Text: strings.Repeat("x", 900), Rank: 1}},
	}
	p := New(client)

	block := p.BuildBlock(context.Background(), "warranty")
	if !strings.HasSuffix(block, "...") {
		t.Fatalf("long passage not truncated: %q", block[len(block)-20:])
	}
	line := strings.TrimPrefix(block, BlockHeader+"\n1. ")
	if got := len([]rune(line)); got != 603 {
		t.Errorf("rendered passage length = %d, want 603", got)
	}
}

func TestBuildBlockEmptyResults(t *testing.T) {
	t.Parallel()

	p := New(&retrievalmock.Client{})
	if got := p.BuildBlock(context.Background(), "warranty"); got != EmptyBlock {
		t.Errorf("block = %q, want %q", got, EmptyBlock)
	}
}

func TestBuildBlockRetrievalError(t *testing.T) {
	t.Parallel()

	client := &retrievalmock.Client{QueryErr: errors.New("connection refused")}
	p := New(client)
	if got := p.BuildBlock(context.Background(), "warranty"); got != EmptyBlock {
		t.Errorf("block = %q, want %q", got, EmptyBlock)
	}
}

func TestBuildBlockTimeout(t *testing.T) {
	t.Parallel()

	client := &retrievalmock.Client{
		Delay: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	p := New(client, WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := p.BuildBlock(context.Background(), "warranty")
	if got != EmptyBlock {
		t.Errorf("block = %q, want %q", got, EmptyBlock)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("BuildBlock took %v, timeout not applied", elapsed)
	}
}
