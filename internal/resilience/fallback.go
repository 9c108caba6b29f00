package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every chain entry fails or sits behind an
// open breaker.
var ErrAllFailed = errors.New("resilience: all providers failed")

type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackChain wraps a primary and zero or more fallbacks of the same
// provider type, each behind its own [Breaker]. Entries are tried in
// registration order. Register fallbacks before first use; the chain is then
// safe for concurrent use.
type FallbackChain[T any] struct {
	entries []chainEntry[T]
	breaker BreakerConfig
	log     *slog.Logger
}

// NewFallbackChain creates a chain with primary as the first entry. breaker
// is the per-entry breaker template; its Name is overwritten per entry.
func NewFallbackChain[T any](primary T, primaryName string, breaker BreakerConfig) *FallbackChain[T] {
	log := breaker.Logger
	if log == nil {
		log = slog.Default()
	}
	fc := &FallbackChain[T]{breaker: breaker, log: log}
	fc.add(primaryName, primary)
	return fc
}

// AddFallback appends a fallback entry, tried after all earlier entries.
func (fc *FallbackChain[T]) AddFallback(name string, value T) {
	fc.add(name, value)
}

func (fc *FallbackChain[T]) add(name string, value T) {
	cfg := fc.breaker
	cfg.Name = name
	fc.entries = append(fc.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Primary returns the first entry's value.
func (fc *FallbackChain[T]) Primary() T {
	return fc.entries[0].value
}

// Try runs fn against each healthy entry in order until one succeeds.
// Entries behind open breakers are skipped. Returns ErrAllFailed wrapping the
// last error when nothing succeeds.
func (fc *FallbackChain[T]) Try(fn func(T) error) error {
	var lastErr error
	for i := range fc.entries {
		entry := &fc.entries[i]
		err := entry.breaker.Do(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			fc.log.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			fc.log.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

// TryWithResult is [FallbackChain.Try] for functions that return a value. A
// package-level function because Go methods cannot add type parameters.
func TryWithResult[T, R any](fc *FallbackChain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fc.entries {
		entry := &fc.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			fc.log.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			fc.log.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
