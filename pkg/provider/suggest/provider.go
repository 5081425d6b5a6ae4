// Package suggest defines the Provider interface implemented by every source
// of word suggestions.
//
// A provider turns a [types.SuggestionContext] into scored
// [types.PredictionCandidate] values. The ranking engine queries several
// providers, weights their candidates by [types.Source] and keeps the best.
// Providers that also learn from committed words implement [Learner].
//
// Implementations live in sub-packages:
//
//   - dictionary: exact matches and prefix completions from a word list
//   - contraction: apostrophe-less input to contractions ("dont" → "don't")
//   - typo: edit-distance corrections against the word list
//   - nextword: static bigram predictions after a space
//   - userlearn: per-user unigram and bigram frequencies
//
// Suggest must be safe for concurrent use and must not block on I/O. All
// expensive work belongs in Init.
package suggest

import (
	"context"
	"io/fs"

	"github.com/MrWong99/glidekey/pkg/types"
)

// Asset names looked up in the assets filesystem passed to [Provider.Init].
const (
	// DictionaryAsset is a plain-text word list, one word per line.
	DictionaryAsset = "words.txt"

	// BigramAsset is a YAML mapping from a word to its likely successors,
	// most likely first.
	BigramAsset = "bigrams.yaml"

	// ContractionAsset is a YAML mapping from apostrophe-less input to its
	// contraction.
	ContractionAsset = "contractions.yaml"
)

// Provider is the interface every suggestion source implements.
type Provider interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string

	// Init loads the provider's data from assets. It is called once before
	// the first Suggest. When loading fails the provider stays usable with an
	// empty data set and Init returns the cause.
	Init(ctx context.Context, assets fs.FS) error

	// Suggest returns candidates for sc. It returns nil when the provider
	// has nothing to offer or has not been initialised.
	Suggest(sc types.SuggestionContext) []types.PredictionCandidate
}

// Learner is implemented by providers that adapt to the words a user
// commits.
type Learner interface {
	// Learn records that word was committed after previous. previous may be
	// empty. Learn returns an error only when the event could not be
	// persisted; the in-memory model is updated regardless.
	Learn(ctx context.Context, word, previous string) error
}
