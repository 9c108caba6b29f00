// Package transcript post-processes final speech-to-text output before it
// reaches the orchestrator.
//
// STT engines routinely mangle the Skyline model names ("aurora" becomes
// "roar", "Trailrunner" becomes "trail runner"). The Corrector scans a final
// transcript for words that phonetically match the vehicle vocabulary,
// using Double Metaphone codes for candidate filtering and Jaro-Winkler
// similarity for ranking, and rewrites confident matches to the canonical
// spelling so retrieval and the inventory tools see real model names.
package transcript

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// DefaultVocabulary is the canonical Skyline Motors model vocabulary.
func DefaultVocabulary() []string {
	return []string{"Aurora", "Horizon", "Trailrunner", "CityLite", "Skyline"}
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically-matched word to be rewritten. Default 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum score for the pure-similarity fallback
// when no phonetic candidate exists. Default 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// Corrector rewrites misheard vehicle names in transcripts. Read-only after
// construction, safe for concurrent use.
type Corrector struct {
	vocabulary        []string
	vocabCodes        []map[string]struct{}
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New builds a Corrector over the given vocabulary. An empty vocabulary
// falls back to DefaultVocabulary.
func New(vocabulary []string, opts ...Option) *Corrector {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary()
	}
	c := &Corrector{
		vocabulary:        vocabulary,
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	c.vocabCodes = make([]map[string]struct{}, len(vocabulary))
	for i, v := range vocabulary {
		c.vocabCodes[i] = metaphoneCodes(strings.ToLower(v))
	}
	return c
}

// Correct returns text with confidently-matched words replaced by their
// canonical vocabulary spelling. Whitespace and punctuation are preserved;
// exact (case-insensitive) vocabulary hits are normalised to canonical case.
func (c *Corrector) Correct(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text
	}

	changed := false
	for i, f := range fields {
		core, prefix, suffix := splitPunct(f)
		if core == "" {
			continue
		}
		if canonical, ok := c.matchWord(core); ok && canonical != core {
			fields[i] = prefix + canonical + suffix
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

// matchWord finds the best vocabulary entry for word, if any clears the
// thresholds.
func (c *Corrector) matchWord(word string) (string, bool) {
	lower := strings.ToLower(word)
	wordCodes := metaphoneCodes(lower)

	bestScore := 0.0
	bestIdx := -1
	bestPhonetic := false

	for i, v := range c.vocabulary {
		vLower := strings.ToLower(v)
		if lower == vLower {
			return v, true
		}

		phonetic := codesOverlap(wordCodes, c.vocabCodes[i])
		score := matchr.JaroWinkler(lower, vLower, false)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				bestScore, bestIdx, bestPhonetic = score, i, true
			}
		case !phonetic && !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore:
			// A high prefix score alone is not enough: "city" must not
			// become "CityLite".
			if lenDiff(lower, vLower) <= 2 {
				bestScore, bestIdx = score, i
			}
		}
	}

	if bestIdx < 0 {
		return word, false
	}
	return c.vocabulary[bestIdx], true
}

func lenDiff(a, b string) int {
	d := len(a) - len(b)
	if d < 0 {
		return -d
	}
	return d
}

func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// splitPunct peels leading and trailing punctuation off a token.
func splitPunct(token string) (core, prefix, suffix string) {
	runes := []rune(token)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsNumber(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsNumber(runes[end-1]) {
		end--
	}
	return string(runes[start:end]), string(runes[:start]), string(runes[end:])
}
