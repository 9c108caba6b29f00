package transcript

import "testing"

func TestCorrectExactMatchNormalisesCase(t *testing.T) {
	t.Parallel()

	c := New(nil)
	got := c.Correct("tell me about the aurora")
	if got != "tell me about the Aurora" {
		t.Errorf("got %q", got)
	}
}

func TestCorrectPhoneticMishearing(t *testing.T) {
	t.Parallel()

	c := New(nil)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "horizon", in: "does the horizen come in red", want: "does the Horizon come in red"},
		{name: "trailrunner", in: "what about the trailruner", want: "what about the Trailrunner"},
		{name: "punctuation kept", in: "the aurora, right?", want: "the Aurora, right?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Correct(tt.in); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrectLeavesOrdinaryWordsAlone(t *testing.T) {
	t.Parallel()

	c := New(nil)
	for _, text := range []string{
		"what does the warranty cover",
		"I drove into the city yesterday",
		"do you take trade-ins",
		"",
	} {
		if got := c.Correct(text); got != text {
			t.Errorf("Correct(%q) = %q, want unchanged", text, got)
		}
	}
}

func TestCorrectCustomVocabulary(t *testing.T) {
	t.Parallel()

	c := New([]string{"Meridian"})
	if got := c.Correct("the meridian please"); got != "the Meridian please" {
		t.Errorf("got %q", got)
	}
	if got := c.Correct("the aurora please"); got != "the aurora please" {
		t.Errorf("default vocabulary leaked into custom corrector: %q", got)
	}
}
