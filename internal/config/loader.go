package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Learning backends accepted by [Validate].
var validBackends = []string{"file", "sqlite", "postgres"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies [Defaults] and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	Defaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Gesture
	if cfg.Gesture.Preset != "" && !cfg.Gesture.Preset.IsValid() {
		errs = append(errs, fmt.Errorf("gesture.preset %q is invalid; valid values: default, high-accuracy, performance", cfg.Gesture.Preset))
	}
	if err := cfg.Gesture.Resolve().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gesture: %w", err))
	}

	// Engine
	for set, entries := range map[string][]ProviderEntry{
		"engine.completion": cfg.Engine.Completion,
		"engine.next_word":  cfg.Engine.NextWord,
	} {
		for i, e := range entries {
			if e.Name == "" {
				errs = append(errs, fmt.Errorf("%s[%d].name is required", set, i))
				continue
			}
			validateProviderName(e.Name)
		}
	}
	if cfg.Engine.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("engine.max_results must be >= 0, got %d", cfg.Engine.MaxResults))
	}
	if cfg.Engine.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("engine.cache_size must be >= 0, got %d", cfg.Engine.CacheSize))
	}

	// Learning
	l := cfg.Learning
	if !slices.Contains(validBackends, l.Backend) {
		errs = append(errs, fmt.Errorf("learning.backend %q is invalid; valid values: file, sqlite, postgres", l.Backend))
	}
	if l.Backend == "postgres" && l.DSN == "" {
		errs = append(errs, errors.New("learning.dsn is required when backend is postgres"))
	}
	if (l.Backend == "file" || l.Backend == "sqlite") && l.Path == "" {
		errs = append(errs, fmt.Errorf("learning.path is required when backend is %s", l.Backend))
	}
	for name, v := range map[string]int{
		"learning.max_unigrams":        l.MaxUnigrams,
		"learning.max_bigram_contexts": l.MaxContexts,
		"learning.max_next_words":      l.MaxNextWords,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", name, v))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is not a built-in provider.
func validateProviderName(name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown suggestion provider name, needs a custom registration",
		"name", name,
		"known", ValidProviderNames,
	)
}
