package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/glidekey/pkg/provider/suggest"
)

// Names of the built-in suggestion providers.
const (
	ProviderDictionary  = "dictionary"
	ProviderContraction = "contraction"
	ProviderTypo        = "typo"
	ProviderNextWord    = "nextword"
	ProviderUserLearn   = "userlearn"
)

// ValidProviderNames lists the built-in provider names. [Validate] warns
// about entries outside this list since they need a custom registration.
var ValidProviderNames = []string{
	ProviderDictionary, ProviderContraction, ProviderTypo, ProviderNextWord, ProviderUserLearn,
}

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// ProviderFactory builds a suggestion provider from its config entry.
type ProviderFactory func(ProviderEntry) (suggest.Provider, error)

// Registry maps provider names to their constructors. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register registers factory under name. Subsequent calls with the same
// name overwrite the previous registration.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create instantiates the provider registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) Create(entry ProviderEntry) (suggest.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create provider %q: %w", entry.Name, err)
	}
	return p, nil
}
