package retrieval

import (
	"strings"
	"testing"
)

func TestClampTopK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		k    int
		max  int
		want int
	}{
		{name: "within bounds", k: 3, max: 10, want: 3},
		{name: "zero", k: 0, max: 10, want: 1},
		{name: "negative", k: -5, max: 10, want: 1},
		{name: "above max", k: 50, max: 10, want: 10},
		{name: "at max", k: 10, max: 10, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := clampTopK(tt.k, tt.max); got != tt.want {
				t.Errorf("clampTopK(%d, %d) = %d, want %d", tt.k, tt.max, got, tt.want)
			}
		})
	}
}

func TestSplitTextShortInput(t *testing.T) {
	t.Parallel()

	chunks := SplitText("warranty covers five years", 800, 200)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "warranty covers five years" {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitTextEmpty(t *testing.T) {
	t.Parallel()

	if chunks := SplitText("", 800, 200); chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
	if chunks := SplitText("   \n\t ", 800, 200); chunks != nil {
		t.Errorf("whitespace-only input: got %v, want nil", chunks)
	}
}

func TestSplitTextChunksAndOverlap(t *testing.T) {
	t.Parallel()

	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, "section")
	}
	text := strings.Join(words, " ")

	chunks := SplitText(text, 100, 25)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Errorf("chunk %d has %d runes, want <= 100", i, len([]rune(c)))
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d not trimmed: %q", i, c)
		}
	}
}

func TestSplitTextPreservesWords(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("horsepower torque cargo payload ", 50)
	for _, c := range SplitText(text, 64, 16) {
		for _, w := range strings.Fields(c) {
			switch w {
			case "horsepower", "torque", "cargo", "payload":
			default:
				t.Fatalf("word split across chunk boundary: %q", w)
			}
		}
	}
}
