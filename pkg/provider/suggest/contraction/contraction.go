// Package contraction implements a [suggest.Provider] that expands
// apostrophe-less input into its contraction, e.g. "dont" into "don't".
package contraction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

const score = 100.0

// defaultTable is used when no contraction asset is present.
var defaultTable = map[string]string{
	"im": "I'm", "ill": "I'll", "id": "I'd", "ive": "I've",
	"dont": "don't", "cant": "can't", "wont": "won't",
	"isnt": "isn't", "arent": "aren't", "wasnt": "wasn't",
	"couldnt": "couldn't", "shouldnt": "shouldn't", "wouldnt": "wouldn't",
	"youre": "you're", "youll": "you'll", "youd": "you'd",
	"hes": "he's", "shes": "she's", "its": "it's",
	"theyre": "they're", "theyll": "they'll", "theyd": "they'd",
	"weve": "we've", "well": "we'll", "wed": "we'd",
	"whats": "what's", "theres": "there's", "lets": "let's",
}

// DefaultTable returns a copy of the built-in contraction table.
func DefaultTable() map[string]string {
	return maps.Clone(defaultTable)
}

// Provider suggests contractions. It is safe for concurrent use.
type Provider struct {
	mu    sync.RWMutex
	table map[string]string
}

var _ suggest.Provider = (*Provider)(nil)

// New returns a provider preloaded with the built-in table.
func New() *Provider {
	return &Provider{table: DefaultTable()}
}

// Name implements [suggest.Provider].
func (p *Provider) Name() string { return "contraction" }

// Init implements [suggest.Provider]. If assets contains
// [suggest.ContractionAsset], its entries extend and override the built-in
// table. A missing asset is not an error.
func (p *Provider) Init(ctx context.Context, assets fs.FS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if assets == nil {
		return nil
	}
	data, err := fs.ReadFile(assets, suggest.ContractionAsset)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("contraction: read %s: %w", suggest.ContractionAsset, err)
	}
	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("contraction: parse %s: %w", suggest.ContractionAsset, err)
	}

	table := DefaultTable()
	for k, v := range extra {
		table[strings.ToLower(k)] = v
	}
	p.mu.Lock()
	p.table = table
	p.mu.Unlock()
	return nil
}

// Suggest implements [suggest.Provider].
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	if sc.IsAfterSpace {
		return nil
	}
	p.mu.RLock()
	expansion, ok := p.table[strings.ToLower(sc.CurrentInput)]
	p.mu.RUnlock()
	if !ok {
		return nil
	}
	return []types.PredictionCandidate{{
		Word:         expansion,
		Score:        score,
		Source:       types.SourceContraction,
		IsCompletion: true,
	}}
}
