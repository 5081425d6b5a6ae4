// Package mock provides test doubles for the suggest package interfaces.
//
// Provider returns a fixed candidate list and records every call, which makes
// it easy to check how the ranking engine merges and weights candidates:
//
//	p := &mock.Provider{
//	    ProviderName: "fixed",
//	    Candidates:   []types.PredictionCandidate{{Word: "hi", Score: 10}},
//	}
package mock

import (
	"context"
	"io/fs"
	"slices"
	"sync"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/types"
)

// LearnCall records a single invocation of Provider.Learn.
type LearnCall struct {
	Word     string
	Previous string
}

// Provider is a mock implementation of suggest.Provider and suggest.Learner.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Candidates is returned by every Suggest call.
	Candidates []types.PredictionCandidate

	// SuggestFunc, if set, takes precedence over Candidates.
	SuggestFunc func(types.SuggestionContext) []types.PredictionCandidate

	// InitErr is returned by Init.
	InitErr error

	// LearnErr is returned by Learn.
	LearnErr error

	// InitCalls counts calls to Init.
	InitCalls int

	// SuggestCalls records the context of every Suggest call in order.
	SuggestCalls []types.SuggestionContext

	// LearnCalls records every Learn call in order.
	LearnCalls []LearnCall
}

// Name implements suggest.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Init records the call and returns InitErr.
func (p *Provider) Init(context.Context, fs.FS) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InitCalls++
	return p.InitErr
}

// Suggest records the call and returns SuggestFunc(sc) or a copy of
// Candidates.
func (p *Provider) Suggest(sc types.SuggestionContext) []types.PredictionCandidate {
	p.mu.Lock()
	p.SuggestCalls = append(p.SuggestCalls, sc)
	fn := p.SuggestFunc
	out := slices.Clone(p.Candidates)
	p.mu.Unlock()
	if fn != nil {
		return fn(sc)
	}
	return out
}

// Learn records the call and returns LearnErr.
func (p *Provider) Learn(_ context.Context, word, previous string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LearnCalls = append(p.LearnCalls, LearnCall{Word: word, Previous: previous})
	return p.LearnErr
}

// Calls returns the number of Init, Suggest and Learn calls. Thread-safe.
func (p *Provider) Calls() (inits, suggests, learns int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.InitCalls, len(p.SuggestCalls), len(p.LearnCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InitCalls = 0
	p.SuggestCalls = nil
	p.LearnCalls = nil
}

var (
	_ suggest.Provider = (*Provider)(nil)
	_ suggest.Learner  = (*Provider)(nil)
)
