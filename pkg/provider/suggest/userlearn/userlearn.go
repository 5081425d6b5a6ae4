// Package userlearn implements a [suggest.Provider] and [suggest.Learner]
// that personalises suggestions from the words a user commits.
//
// The provider keeps two tables: how often each word was committed
// (unigrams) and how often one word followed another (bigrams). Both are
// bounded LRU tables; each bigram context additionally keeps only its most
// frequent successors. Every learning event is written through to a [Store].
package userlearn

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

const (
	// DefaultMaxWords bounds the unigram table.
	DefaultMaxWords = 20000

	// DefaultMaxContexts bounds the number of previous words tracked in the
	// bigram table.
	DefaultMaxContexts = 5000

	// DefaultMaxNextWords bounds the successors kept per previous word.
	DefaultMaxNextWords = 64

	maxWordContexts = 16
	maxResults      = 3
	minWordLen      = 2
	nextWordFactor  = 20.0
	completionScale = 10.0
)

// Store persists the learned tables.
type Store interface {
	// Load returns the persisted tables. A store with nothing persisted
	// returns empty tables and a nil error.
	Load(ctx context.Context) (types.UserTables, error)

	// Save replaces the persisted tables.
	Save(ctx context.Context, t types.UserTables) error
}

// Option configures a [Provider].
type Option func(*Provider)

// WithStore sets the persistence backend. Without a store nothing survives a
// restart.
func WithStore(s Store) Option {
	return func(p *Provider) { p.store = s }
}

// WithLimits bounds the tables. Non-positive values keep the defaults.
func WithLimits(maxWords, maxContexts, maxNextWords int) Option {
	return func(p *Provider) {
		if maxWords > 0 {
			p.maxWords = maxWords
		}
		if maxContexts > 0 {
			p.maxContexts = maxContexts
		}
		if maxNextWords > 0 {
			p.maxNextWords = maxNextWords
		}
	}
}

// WithClock overrides the time source used for last-used timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// Provider learns from committed words. It is safe for concurrent use.
type Provider struct {
	store        Store
	maxWords     int
	maxContexts  int
	maxNextWords int
	now          func() time.Time

	// persistMu orders writes so that a newer snapshot is never overwritten
	// by an older one.
	persistMu sync.Mutex

	mu       sync.RWMutex
	unigrams *simplelru.LRU[string, types.UserWordData]
	bigrams  *simplelru.LRU[string, map[string]int]
}

var (
	_ suggest.Provider = (*Provider)(nil)
	_ suggest.Learner  = (*Provider)(nil)
)

// New returns a provider with empty tables.
func New(opts ...Option) *Provider {
	p := &Provider{
		maxWords:     DefaultMaxWords,
		maxContexts:  DefaultMaxContexts,
		maxNextWords: DefaultMaxNextWords,
		now:          time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.unigrams, p.bigrams = p.newTables()
	return p
}

func (p *Provider) newTables() (*simplelru.LRU[string, types.UserWordData], *simplelru.LRU[string, map[string]int]) {
	// NewLRU only fails for non-positive sizes, which WithLimits rules out.
	uni, _ := simplelru.NewLRU[string, types.UserWordData](p.maxWords, nil)
	bi, _ := simplelru.NewLRU[string, map[string]int](p.maxContexts, nil)
	return uni, bi
}

// Name implements [suggest.Provider].
func (p *Provider) Name() string { return "userlearn" }

// Init implements [suggest.Provider]. It loads the tables from the store; the
// assets filesystem is not used. If loading fails the tables start empty.
func (p *Provider) Init(ctx context.Context, _ fs.FS) error {
	if p.store == nil {
		return nil
	}
	t, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("userlearn: load: %w", err)
	}
	p.Restore(t)
	slog.Debug("user learning data loaded",
		"words", len(t.Unigrams), "contexts", len(t.Bigrams))
	return nil
}

// Restore replaces the in-memory tables with t. Words are inserted from least
// to most recently used so that the LRU order survives a round trip.
func (p *Provider) Restore(t types.UserTables) {
	uni, bi := p.newTables()

	words := slices.Collect(maps.Keys(t.Unigrams))
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(t.Unigrams[a].LastUsedMs, t.Unigrams[b].LastUsedMs); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, w := range words {
		d := t.Unigrams[w]
		d.Contexts = slices.Clone(d.Contexts)
		uni.Add(w, d)
	}

	for _, prev := range slices.Sorted(maps.Keys(t.Bigrams)) {
		next := maps.Clone(t.Bigrams[prev])
		trimNext(next, "", p.maxNextWords)
		bi.Add(prev, next)
	}

	p.mu.Lock()
	p.unigrams, p.bigrams = uni, bi
	p.mu.Unlock()
}

// Snapshot returns a deep copy of the current tables.
func (p *Provider) Snapshot() types.UserTables {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Provider) snapshotLocked() types.UserTables {
	t := types.NewUserTables()
	for _, w := range p.unigrams.Keys() {
		d, _ := p.unigrams.Peek(w)
		d.Contexts = slices.Clone(d.Contexts)
		t.Unigrams[w] = d
	}
	for _, prev := range p.bigrams.Keys() {
		next, _ := p.bigrams.Peek(prev)
		t.Bigrams[prev] = maps.Clone(next)
	}
	return t
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Learn implements [suggest.Learner]. Words shorter than two characters
// after trimming are ignored. The updated tables are saved before Learn
// returns.
func (p *Provider) Learn(ctx context.Context, word, previous string) error {
	w := clean(word)
	if utf8.RuneCountInString(w) < minWordLen {
		return nil
	}
	prev := clean(previous)

	p.persistMu.Lock()
	defer p.persistMu.Unlock()

	p.mu.Lock()
	d, _ := p.unigrams.Get(w)
	d.Frequency++
	d.LastUsedMs = p.now().UnixMilli()
	if prev != "" {
		d.Contexts = addContext(d.Contexts, prev)
	}
	p.unigrams.Add(w, d)

	if prev != "" {
		next, ok := p.bigrams.Get(prev)
		if !ok {
			next = make(map[string]int)
		}
		next[w]++
		trimNext(next, w, p.maxNextWords)
		p.bigrams.Add(prev, next)
	}
	var snap types.UserTables
	if p.store != nil {
		snap = p.snapshotLocked()
	}
	p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	if err := p.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("userlearn: save: %w", err)
	}
	return nil
}

// addContext inserts prev into the sorted set ctxs. Once the set is full new
// contexts are dropped.
func addContext(ctxs []string, prev string) []string {
	i, found := slices.BinarySearch(ctxs, prev)
	if found || len(ctxs) >= maxWordContexts {
		return ctxs
	}
	return slices.Insert(slices.Clone(ctxs), i, prev)
}

// trimNext evicts the least frequent successors until at most limit remain.
// keep is never evicted. Ties evict the lexically greatest word.
func trimNext(next map[string]int, keep string, limit int) {
	for len(next) > limit {
		victim, first := "", true
		for w, f := range next {
			if w == keep {
				continue
			}
			if first || f < next[victim] || (f == next[victim] && w > victim) {
				victim, first = w, false
			}
		}
		if first {
			return
		}
		delete(next, victim)
	}
}

type scored struct {
	word string
	freq int
}

func rank(entries []scored) []scored {
	slices.SortFunc(entries, func(a, b scored) int {
		if c := cmp.Compare(b.freq, a.freq); c != 0 {
			return c
		}
		return strings.Compare(a.word, b.word)
	})
	if len(entries) > maxResults {
		entries = entries[:maxResults]
	}
	return entries
}

// Suggest implements [suggest.Provider].
//
// After a space it offers the words the user most often typed after the
// previous word. While typing it offers learned words that start with the
// input; the input itself, if learned, is tagged as an exact match. At most
// three candidates are returned, most frequent first.
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case sc.IsAfterSpace && sc.PreviousWord != "":
		next, ok := p.bigrams.Peek(strings.ToLower(sc.PreviousWord))
		if !ok {
			return nil
		}
		entries := make([]scored, 0, len(next))
		for w, f := range next {
			entries = append(entries, scored{w, f})
		}
		var out []types.PredictionCandidate
		for _, e := range rank(entries) {
			out = append(out, types.PredictionCandidate{
				Word:   e.word,
				Score:  float64(e.freq) * nextWordFactor,
				Source: types.SourceUserLearnedNextWord,
			})
		}
		return out

	case !sc.IsAfterSpace && sc.CurrentInput != "":
		input := strings.ToLower(sc.CurrentInput)
		var entries []scored
		for _, w := range p.unigrams.Keys() {
			if !strings.HasPrefix(w, input) {
				continue
			}
			d, _ := p.unigrams.Peek(w)
			entries = append(entries, scored{w, d.Frequency})
		}
		var out []types.PredictionCandidate
		for _, e := range rank(entries) {
			src := types.SourceUserLearnedCompletion
			if e.word == input {
				src = types.SourceUserLearnedExact
			}
			out = append(out, types.PredictionCandidate{
				Word:         e.word,
				Score:        float64(e.freq) * completionScale,
				Source:       src,
				IsCompletion: true,
			})
		}
		return out
	}
	return nil
}

// Frequency returns how often w has been learned.
func (p *Provider) Frequency(w string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, _ := p.unigrams.Peek(clean(w))
	return d.Frequency
}
