// Package nextword implements a [suggest.Provider] that predicts the word
// following a completed word from a static bigram table.
package nextword

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

var defaultTable = map[string][]string{
	"i":      {"am", "have", "will", "think", "can"},
	"you":    {"are", "have", "can", "want", "need"},
	"we":     {"are", "can", "should", "will"},
	"it":     {"is", "was", "will", "has"},
	"in":     {"the", "a", "an", "my"},
	"of":     {"the", "a", "my"},
	"to":     {"be", "the", "a", "my"},
	"on":     {"the", "a", "my"},
	"for":    {"the", "a", "my"},
	"good":   {"morning", "afternoon", "evening", "night", "job", "luck"},
	"thank":  {"you", "you,", "god"},
	"please": {"let", "me", "know", "send"},
	"let's":  {"go", "see", "get", "do"},
	"see":    {"you", "it", "the"},
	"the":    {"next", "first", "last", "best", "only"},
}

// DefaultTable returns a copy of the built-in bigram table.
func DefaultTable() map[string][]string {
	out := make(map[string][]string, len(defaultTable))
	for k, v := range defaultTable {
		out[k] = slices.Clone(v)
	}
	return out
}

// Option configures a [Provider].
type Option func(*Provider)

// WithTable replaces the built-in table. Asset entries loaded by Init still
// override it.
func WithTable(table map[string][]string) Option {
	return func(p *Provider) { p.table = maps.Clone(table) }
}

// Provider predicts next words. It is safe for concurrent use.
type Provider struct {
	mu    sync.RWMutex
	table map[string][]string
}

var _ suggest.Provider = (*Provider)(nil)

// New returns a provider preloaded with the built-in table.
func New(opts ...Option) *Provider {
	p := &Provider{table: DefaultTable()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements [suggest.Provider].
func (p *Provider) Name() string { return "nextword" }

// Init implements [suggest.Provider]. Entries in [suggest.BigramAsset]
// replace the built-in successors of the same word. A missing asset is not an
// error.
func (p *Provider) Init(ctx context.Context, assets fs.FS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if assets == nil {
		return nil
	}
	data, err := fs.ReadFile(assets, suggest.BigramAsset)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("nextword: read %s: %w", suggest.BigramAsset, err)
	}
	var extra map[string][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("nextword: parse %s: %w", suggest.BigramAsset, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	table := maps.Clone(p.table)
	for k, v := range extra {
		table[strings.ToLower(k)] = v
	}
	p.table = table
	return nil
}

// Suggest implements [suggest.Provider]. It only answers right after a space
// with a known previous word; the n-th successor scores 100-n.
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	if !sc.IsAfterSpace || sc.PreviousWord == "" {
		return nil
	}
	p.mu.RLock()
	next := p.table[strings.ToLower(sc.PreviousWord)]
	p.mu.RUnlock()

	if len(next) == 0 {
		return nil
	}
	out := make([]types.PredictionCandidate, len(next))
	for i, w := range next {
		out[i] = types.PredictionCandidate{
			Word:   w,
			Score:  100 - float64(i),
			Source: types.SourceNextWordPrediction,
		}
	}
	return out
}
