// Package suggestion implements the ranking engine that fuses the candidates
// of several [suggest.Provider] implementations into one short list.
//
// The engine keeps two ordered provider sets. Word-completion providers answer
// while a word is being typed, next-word providers answer right after a space.
// Their candidates are merged by [RankAndFilter]. Committed words are fed back
// through [Engine.Learn] to the configured [suggest.Learner].
//
// Typical usage:
//
//	eng := suggestion.New(suggestion.Providers{
//	    Completion: []suggest.Provider{dict, contr, typos, user},
//	    NextWord:   []suggest.Provider{bigrams, user},
//	    Learner:    user,
//	}, suggestion.WithAssets(os.DirFS("assets")))
//	if err := eng.Init(ctx); err != nil {
//	    slog.Warn("some providers failed to load", "err", err)
//	}
//	words := eng.Suggest(ctx, types.SuggestionContext{CurrentInput: "hel"})
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

// DefaultCacheSize is the number of ranked results kept by the result cache.
const DefaultCacheSize = 512

var (
	// ErrNotInitialized is returned by [Engine.Learn] before [Engine.Init]
	// has completed.
	ErrNotInitialized = errors.New("suggestion: engine not initialized")

	// ErrNoLearner is returned by [Engine.Learn] when no learner is
	// configured.
	ErrNoLearner = errors.New("suggestion: no learner configured")
)

// Providers lists the providers an [Engine] fans out to. A provider may appear
// in both sets; it is initialised once.
type Providers struct {
	// Completion is queried while a word is being typed.
	Completion []suggest.Provider

	// NextWord is queried right after a space.
	NextWord []suggest.Provider

	// Learner receives committed words. Optional.
	Learner suggest.Learner
}

// Option configures an [Engine].
type Option func(*Engine)

// WithAssets sets the filesystem passed to every provider's Init.
func WithAssets(fsys fs.FS) Option {
	return func(e *Engine) { e.assets = fsys }
}

// WithLimit sets the maximum number of words returned by Suggest.
// Default: [DefaultLimit].
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithCacheSize sets the size of the result cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

type cacheKey struct {
	afterSpace bool
	previous   string
	input      string
}

// Engine is the suggestion ranking engine. All methods are safe for
// concurrent use.
type Engine struct {
	completion []suggest.Provider
	nextWord   []suggest.Provider
	learner    suggest.Learner

	assets    fs.FS
	limit     int
	cacheSize int
	cache     *lru.Cache[cacheKey, []string]
	metrics   *observe.Metrics

	// epoch advances on every Learn. Results computed across a change are
	// not cached.
	epoch atomic.Uint64

	initOnce sync.Once
	initErr  error
	ready    atomic.Bool
}

// New creates an engine over p. Call [Engine.Init] before use.
func New(p Providers, opts ...Option) *Engine {
	e := &Engine{
		completion: slices.Clone(p.Completion),
		nextWord:   slices.Clone(p.NextWord),
		learner:    p.Learner,
		limit:      DefaultLimit,
		cacheSize:  DefaultCacheSize,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		e.cache, _ = lru.New[cacheKey, []string](e.cacheSize)
	}
	return e
}

// Init initialises every distinct provider concurrently. Only the first call
// does any work; later calls return the first call's result.
//
// Provider failures are not fatal: the failing provider serves from whatever
// fallback data it has and the engine becomes ready regardless. The returned
// error joins all provider failures.
func (e *Engine) Init(ctx context.Context) error {
	e.initOnce.Do(func() {
		e.initErr = e.initProviders(ctx)
		e.ready.Store(true)
	})
	return e.initErr
}

func (e *Engine) initProviders(ctx context.Context) error {
	var all []suggest.Provider
	for _, p := range slices.Concat(e.completion, e.nextWord) {
		if !slices.Contains(all, p) {
			all = append(all, p)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, p := range all {
		g.Go(func() error {
			start := time.Now()
			err := p.Init(ctx, e.assets)
			if err != nil {
				slog.Warn("suggestion provider failed to initialise",
					"provider", p.Name(), "err", err)
				e.metrics.RecordProviderError(ctx, p.Name(), "init")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				mu.Unlock()
				return nil
			}
			slog.Debug("suggestion provider ready",
				"provider", p.Name(), "duration", time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("suggestion: init: %w", err)
	}
	return nil
}

// Ready reports whether [Engine.Init] has completed.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Suggest returns up to the configured limit of ranked words for sc. It
// returns nil before [Engine.Init] has completed.
func (e *Engine) Suggest(ctx context.Context, sc types.SuggestionContext) []string {
	if !e.ready.Load() {
		return nil
	}
	start := time.Now()
	kind := "completion"
	providers := e.completion
	if sc.IsAfterSpace {
		kind = "next_word"
		providers = e.nextWord
	}

	ctx, span := observe.StartSuggestSpan(ctx, kind, sc)
	defer span.End()

	key := cacheKey{
		afterSpace: sc.IsAfterSpace,
		previous:   strings.ToLower(sc.PreviousWord),
		input:      sc.CurrentInput,
	}
	if e.cache != nil {
		if words, ok := e.cache.Get(key); ok {
			e.metrics.RecordSuggest(ctx, kind, true, time.Since(start).Seconds())
			span.SetAttributes(attribute.Bool("suggest.cache_hit", true))
			return slices.Clone(words)
		}
	}

	epoch := e.epoch.Load()
	var cands []types.PredictionCandidate
	for _, p := range providers {
		cands = append(cands, p.Suggest(sc)...)
	}
	words := RankAndFilter(cands, e.limit)

	if e.cache != nil && e.epoch.Load() == epoch {
		e.cache.Add(key, slices.Clone(words))
		// A Learn may have purged between the check and the Add.
		if e.epoch.Load() != epoch {
			e.cache.Remove(key)
		}
	}
	e.metrics.RecordSuggest(ctx, kind, false, time.Since(start).Seconds())
	return words
}

// Refine returns the ranked completions of a glide-recognised word. It is the
// refiner hook used by the glide orchestrator.
func (e *Engine) Refine(ctx context.Context, word string) []string {
	if word == "" {
		return nil
	}
	return e.Suggest(ctx, types.SuggestionContext{CurrentInput: word})
}

// Learn forwards a committed word to the learner and drops all cached
// results.
func (e *Engine) Learn(ctx context.Context, word, previous string) error {
	if !e.ready.Load() {
		e.metrics.RecordLearn(ctx, "not_ready")
		return ErrNotInitialized
	}
	if e.learner == nil {
		e.metrics.RecordLearn(ctx, "no_learner")
		return ErrNoLearner
	}

	err := e.learner.Learn(ctx, word, previous)
	e.epoch.Add(1)
	if e.cache != nil {
		e.cache.Purge()
	}
	if err != nil {
		e.metrics.RecordLearn(ctx, "error")
		return fmt.Errorf("suggestion: learn: %w", err)
	}
	e.metrics.RecordLearn(ctx, "ok")
	return nil
}
