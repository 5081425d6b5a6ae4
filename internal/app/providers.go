package app

import (
	"log/slog"

	"github.com/MrWong99/glidekey/internal/config"
	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/contraction"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/dictionary"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/nextword"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/typo"
)

// registerBuiltinProviders wires the built-in provider factories into reg.
// Every entry naming userlearn resolves to the app's single learning
// provider so that all sets see the same tables.
func (a *App) registerBuiltinProviders(reg *config.Registry) {
	reg.Register(config.ProviderDictionary, func(e config.ProviderEntry) (suggest.Provider, error) {
		var opts []dictionary.Option
		if e.Asset != "" {
			opts = append(opts, dictionary.WithAsset(e.Asset))
		}
		p := dictionary.New(opts...)
		// The first dictionary also drives glide decoding.
		if a.dict == nil {
			a.dict = p
		}
		return p, nil
	})

	reg.Register(config.ProviderContraction, func(config.ProviderEntry) (suggest.Provider, error) {
		return contraction.New(), nil
	})

	reg.Register(config.ProviderTypo, func(e config.ProviderEntry) (suggest.Provider, error) {
		var opts []typo.Option
		if e.Asset != "" {
			opts = append(opts, typo.WithAsset(e.Asset))
		}
		return typo.New(opts...), nil
	})

	reg.Register(config.ProviderNextWord, func(config.ProviderEntry) (suggest.Provider, error) {
		return nextword.New(), nil
	})

	reg.Register(config.ProviderUserLearn, func(config.ProviderEntry) (suggest.Provider, error) {
		return a.user, nil
	})

	for _, name := range reg.Names() {
		slog.Debug("registered suggestion provider", "name", name)
	}
}
