// Package dictionary implements a [suggest.Provider] that offers exact
// matches and prefix completions from a static word list.
package dictionary

import (
	"context"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

const (
	exactScore       = 100.0
	maxCompletions   = 10
	defaultAssetName = suggest.DictionaryAsset
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

// Provider suggests dictionary words. It is safe for concurrent use.
type Provider struct {
	asset string
	seed  []string

	mu      sync.RWMutex
	ordered []string
	words   map[string]struct{}
	byFirst map[rune][]string
}

var _ suggest.Provider = (*Provider)(nil)

// New returns an uninitialised provider.
func New(opts ...Option) *Provider {
	p := &Provider{asset: defaultAssetName}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements [suggest.Provider].
func (p *Provider) Name() string { return "dictionary" }

// Init implements [suggest.Provider]. On failure the dictionary is empty.
func (p *Provider) Init(ctx context.Context, assets fs.FS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	words := p.seed
	if words == nil {
		var err error
		words, err = suggest.LoadWordList(assets, p.asset)
		if err != nil {
			p.index(nil)
			return err
		}
	}
	p.index(words)
	slog.Debug("dictionary loaded", "words", len(words))
	return nil
}

func (p *Provider) index(words []string) {
	set := make(map[string]struct{}, len(words))
	byFirst := make(map[rune][]string)
	ordered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := set[w]; dup {
			continue
		}
		set[w] = struct{}{}
		ordered = append(ordered, w)
		r, _ := utf8.DecodeRuneInString(w)
		byFirst[r] = append(byFirst[r], w)
	}
	p.mu.Lock()
	p.ordered, p.words, p.byFirst = ordered, set, byFirst
	p.mu.Unlock()
}

// Contains reports whether w is a dictionary word.
func (p *Provider) Contains(w string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.words[strings.ToLower(w)]
	return ok
}

// Words returns the dictionary in load order.
func (p *Provider) Words() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.ordered)
}

// Suggest implements [suggest.Provider]. It returns the input itself when it
// is a dictionary word, followed by up to ten longer words that start with
// it. Nothing is returned right after a space.
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	input := strings.ToLower(sc.CurrentInput)
	if input == "" || sc.IsAfterSpace {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.PredictionCandidate
	if _, ok := p.words[input]; ok {
		out = append(out, types.PredictionCandidate{
			Word:   input,
			Score:  exactScore,
			Source: types.SourceExactMatch,
		})
	}

	first, _ := utf8.DecodeRuneInString(input)
	inLen := float64(utf8.RuneCountInString(input))
	n := 0
	for _, w := range p.byFirst[first] {
		if n == maxCompletions {
			break
		}
		if len(w) <= len(input) || !strings.HasPrefix(w, input) {
			continue
		}
		out = append(out, types.PredictionCandidate{
			Word:         w,
			Score:        inLen / float64(utf8.RuneCountInString(w)) * 100,
			Source:       types.SourcePrefixCompletion,
			IsCompletion: true,
		})
		n++
	}
	return out
}
