package learnstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/glidekey/internal/resilience"
	"github.com/MrWong99/glidekey/pkg/types"
)

// Chain is a [Store] over several backends. Each call is served by the first
// backend whose circuit breaker admits it and that succeeds; later backends
// only see traffic while earlier ones fail.
//
// Every Save writes the complete tables, so a recovered primary catches up on
// the next learning event. Load compares all backends, see [Chain.Load].
type Chain struct {
	group *resilience.FallbackGroup[Store]
}

var _ Store = (*Chain)(nil)

// NewChain returns a chain with primary as its first backend.
func NewChain(primary Store, name string, breaker resilience.CircuitBreakerConfig) *Chain {
	return &Chain{
		group: resilience.NewFallbackGroup[Store](primary, name, resilience.FallbackConfig{
			CircuitBreaker: breaker,
		}),
	}
}

// Add appends a fallback backend. It must not be called concurrently with
// other methods.
func (c *Chain) Add(name string, s Store) {
	c.group.AddFallback(name, s)
}

// Load implements [Store]. Every admitted backend is read and the tables
// with the most recent use win; ties go to the earlier backend. A fallback
// that absorbed saves while the primary was down therefore outranks the
// primary's older copy.
func (c *Chain) Load(ctx context.Context) (types.UserTables, error) {
	var (
		best    types.UserTables
		served  string
		newest  int64 = -1
		lastErr error
	)
	for _, r := range resilience.ExecuteAll(ctx, c.group, func(ctx context.Context, s Store) (types.UserTables, error) {
		return s.Load(ctx)
	}) {
		if r.Err != nil {
			lastErr = r.Err
			slog.Debug("learned tables unavailable", "backend", r.Name, "err", r.Err)
			continue
		}
		if ts := lastUsed(r.Value); ts > newest {
			best, served, newest = r.Value, r.Name, ts
		}
	}
	if newest < 0 {
		if err := ctx.Err(); err != nil {
			return types.UserTables{}, fmt.Errorf("learnstore: load: %w", err)
		}
		return types.UserTables{}, fmt.Errorf("learnstore: load: %w: %w", resilience.ErrAllFailed, lastErr)
	}
	slog.Debug("learned tables loaded", "backend", served)
	return best, nil
}

// lastUsed returns the most recent LastUsedMs in t, or 0 for empty tables.
func lastUsed(t types.UserTables) int64 {
	var ts int64
	for _, d := range t.Unigrams {
		ts = max(ts, d.LastUsedMs)
	}
	return ts
}

// Save implements [Store].
func (c *Chain) Save(ctx context.Context, t types.UserTables) error {
	if err := c.group.Execute(ctx, func(ctx context.Context, s Store) error {
		return s.Save(ctx, t)
	}); err != nil {
		return fmt.Errorf("learnstore: save: %w", err)
	}
	return nil
}

// Status reports the breaker state of every backend.
func (c *Chain) Status() []resilience.EntryStatus {
	return c.group.Status()
}

// Healthy reports whether at least one backend accepts calls.
func (c *Chain) Healthy() bool {
	for _, st := range c.group.Status() {
		if st.State != resilience.StateOpen {
			return true
		}
	}
	return false
}

// Close closes every backend.
func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.group.Values() {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
