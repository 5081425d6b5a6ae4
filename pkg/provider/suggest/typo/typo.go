// Package typo implements a [suggest.Provider] that proposes dictionary words
// within a small edit distance of the current input.
//
// Up to four characters of input tolerate one edit, longer input two. Only
// words whose length is within that distance are compared, and the two
// closest corrections are returned.
package typo

import (
	"context"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

const (
	minInputLen    = 3
	maxCorrections = 2
)

// Option configures a [Provider].
type Option func(*Provider)

// WithAsset overrides the word list file name. Default: "words.txt".
func WithAsset(name string) Option {
	return func(p *Provider) { p.asset = name }
}

// WithWords seeds the provider with words instead of loading them from the
// assets filesystem.
func WithWords(words []string) Option {
	return func(p *Provider) { p.seed = words }
}

// Provider suggests typo corrections. It is safe for concurrent use.
type Provider struct {
	asset string
	seed  []string

	mu    sync.RWMutex
	byLen map[int][]string
}

var _ suggest.Provider = (*Provider)(nil)

// New returns an uninitialised provider.
func New(opts ...Option) *Provider {
	p := &Provider{asset: suggest.DictionaryAsset}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements [suggest.Provider].
func (p *Provider) Name() string { return "typo" }

// Init implements [suggest.Provider].
func (p *Provider) Init(ctx context.Context, assets fs.FS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	words := p.seed
	var loadErr error
	if words == nil {
		words, loadErr = suggest.LoadWordList(assets, p.asset)
	}

	byLen := make(map[int][]string)
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if _, dup := seen[w]; dup || w == "" {
			continue
		}
		seen[w] = struct{}{}
		n := utf8.RuneCountInString(w)
		byLen[n] = append(byLen[n], w)
	}

	p.mu.Lock()
	p.byLen = byLen
	p.mu.Unlock()
	return loadErr
}

// MaxDistance returns the largest edit distance tolerated for an input of n
// characters.
func MaxDistance(n int) int {
	if n <= 4 {
		return 1
	}
	return 2
}

// Suggest implements [suggest.Provider].
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	input := strings.ToLower(sc.CurrentInput)
	n := utf8.RuneCountInString(input)
	if n < minInputLen || sc.IsAfterSpace {
		return nil
	}
	maxDist := MaxDistance(n)

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.PredictionCandidate
	for l := n - maxDist; l <= n+maxDist; l++ {
		for _, w := range p.byLen[l] {
			d := matchr.Levenshtein(input, w)
			if d == 0 || d > maxDist {
				continue
			}
			out = append(out, types.PredictionCandidate{
				Word:         w,
				Score:        (1 - float64(d)/float64(n)) * 100,
				Source:       types.SourceTypoCorrection,
				IsCompletion: true,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b types.PredictionCandidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(out) > maxCorrections {
		out = out[:maxCorrections]
	}
	return out
}
