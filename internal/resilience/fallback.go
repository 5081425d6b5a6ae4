package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [FallbackGroup] failed or
// was skipped because its breaker was open.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the breaker created for each entry of a
// [FallbackGroup]. The breaker's Name is set to the entry name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// EntryStatus describes one entry of a [FallbackGroup].
type EntryStatus struct {
	Name  string
	State State
}

// FallbackGroup holds a primary value and any number of fallbacks of the same
// type. Calls go to the first entry whose breaker admits them; on failure the
// next entry is tried in registration order.
//
// Entries must be registered before the group is used concurrently.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry that is tried after all earlier ones.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Status reports the breaker state of every entry in order.
func (fg *FallbackGroup[T]) Status() []EntryStatus {
	out := make([]EntryStatus, len(fg.entries))
	for i, e := range fg.entries {
		out[i] = EntryStatus{Name: e.name, State: e.breaker.State()}
	}
	return out
}

// Values returns the entry values in order.
func (fg *FallbackGroup[T]) Values() []T {
	out := make([]T, len(fg.entries))
	for i, e := range fg.entries {
		out[i] = e.value
	}
	return out
}

// Execute calls fn with each entry in turn until one succeeds. It returns
// [ErrAllFailed] wrapping the last failure when none does, or ctx's error
// once ctx is done.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(context.Context, T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return err
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value.
func ExecuteWithResult[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, error) {
	r, _, err := ExecuteNamed(ctx, fg, fn)
	return r, err
}

// ExecuteNamed is [ExecuteWithResult] that also returns the name of the
// entry that served the call.
func ExecuteNamed[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) (R, string, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			result, innerErr = fn(ctx, entry.value)
			return innerErr
		})
		if err == nil {
			return result, entry.name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, circuit open", "backend", entry.name)
			continue
		}
		slog.Warn("backend failed, trying next", "backend", entry.name, "err", err)
	}
	if lastErr == nil {
		return zero, "", ErrAllFailed
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

// Result is the outcome of one entry in [ExecuteAll].
type Result[R any] struct {
	Name  string
	Value R
	Err   error
}

// ExecuteAll calls fn with every entry, each through its own breaker, and
// returns one Result per entry in registration order. Entries whose breaker
// is open report [ErrCircuitOpen].
func ExecuteAll[T, R any](ctx context.Context, fg *FallbackGroup[T], fn func(context.Context, T) (R, error)) []Result[R] {
	out := make([]Result[R], len(fg.entries))
	for i := range fg.entries {
		entry := &fg.entries[i]
		out[i].Name = entry.name
		out[i].Err = entry.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			out[i].Value, err = fn(ctx, entry.value)
			return err
		})
	}
	return out
}
