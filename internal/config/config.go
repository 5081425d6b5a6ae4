// Package config provides the configuration schema, loader, hot-reload
// watcher and suggestion provider registry for the glidekey server.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/glidekey/pkg/gesture"
)

// LogLevel controls log verbosity for the glidekey server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Preset names a built-in gesture configuration.
type Preset string

const (
	PresetDefault      Preset = "default"
	PresetHighAccuracy Preset = "high-accuracy"
	PresetPerformance  Preset = "performance"
)

// IsValid reports whether p is a recognised preset.
func (p Preset) IsValid() bool {
	switch p {
	case PresetDefault, PresetHighAccuracy, PresetPerformance:
		return true
	}
	return false
}

// Configuration returns the gesture configuration of p. Unknown presets
// return [gesture.Default].
func (p Preset) Configuration() gesture.Configuration {
	switch p {
	case PresetHighAccuracy:
		return gesture.HighAccuracy()
	case PresetPerformance:
		return gesture.Performance()
	default:
		return gesture.Default()
	}
}

// Config is the root configuration structure for glidekey.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assets    AssetsConfig    `yaml:"assets"`
	Gesture   GestureConfig   `yaml:"gesture"`
	Engine    EngineConfig    `yaml:"engine"`
	Learning  LearningConfig  `yaml:"learning"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS enables HTTPS when set.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AssetsConfig locates the suggestion data files.
type AssetsConfig struct {
	// Dir holds words.txt, bigrams.yaml and contractions.yaml. When empty,
	// only the built-in tables are available.
	Dir string `yaml:"dir"`
}

// GestureConfig selects a preset and optionally overrides single values.
// Unset overrides keep the preset's value.
type GestureConfig struct {
	Preset Preset `yaml:"preset"`

	MinSwipeDistance    *float64       `yaml:"min_swipe_distance"`
	MaxSwipeVelocity    *float64       `yaml:"max_swipe_velocity"`
	SmoothingFactor     *float64       `yaml:"smoothing_factor"`
	ConfidenceThreshold *float64       `yaml:"confidence_threshold"`
	MaxSuggestions      *int           `yaml:"max_suggestions"`
	MaxAlternatives     *int           `yaml:"max_alternatives"`
	PreviewEnabled      *bool          `yaml:"preview_enabled"`
	PreviewInterval     *time.Duration `yaml:"preview_interval"`
	KeyTolerance        *float64       `yaml:"key_tolerance"`
	SmoothOnComplete    *bool          `yaml:"smooth_on_complete"`
	Sensitivity         *float64       `yaml:"sensitivity"`
}

// Resolve returns the preset with all overrides applied.
func (g GestureConfig) Resolve() gesture.Configuration {
	c := g.Preset.Configuration()
	set(&c.MinSwipeDistance, g.MinSwipeDistance)
	set(&c.MaxSwipeVelocity, g.MaxSwipeVelocity)
	set(&c.SmoothingFactor, g.SmoothingFactor)
	set(&c.ConfidenceThreshold, g.ConfidenceThreshold)
	set(&c.MaxSuggestions, g.MaxSuggestions)
	set(&c.MaxAlternatives, g.MaxAlternatives)
	set(&c.PreviewEnabled, g.PreviewEnabled)
	set(&c.PreviewInterval, g.PreviewInterval)
	set(&c.KeyTolerance, g.KeyTolerance)
	set(&c.SmoothOnComplete, g.SmoothOnComplete)
	set(&c.Sensitivity, g.Sensitivity)
	return c
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// EngineConfig configures the suggestion ranking engine.
type EngineConfig struct {
	// Completion lists the providers queried while a word is typed, in
	// order. Default: dictionary, contraction, typo, userlearn.
	Completion []ProviderEntry `yaml:"completion"`

	// NextWord lists the providers queried after a space, in order.
	// Default: nextword, userlearn.
	NextWord []ProviderEntry `yaml:"next_word"`

	// MaxResults caps the ranked list. Default: 3.
	MaxResults int `yaml:"max_results"`

	// CacheSize is the number of cached ranked results. Default: 512.
	CacheSize int `yaml:"cache_size"`
}

// ProviderEntry selects a suggestion provider registered in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider (e.g. "dictionary", "typo").
	Name string `yaml:"name"`

	// Asset overrides the file name the provider loads from the assets
	// directory. Only word-list providers honour it.
	Asset string `yaml:"asset"`
}

// LearningConfig configures persistence of the user learning tables.
type LearningConfig struct {
	// Backend is "file", "sqlite" or "postgres". Default: file.
	Backend string `yaml:"backend"`

	// Path is the JSON file or SQLite database path.
	// Default: "glidekey-learned.json".
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// FallbackPath adds a JSON file store used while the backend fails.
	FallbackPath string `yaml:"fallback_path"`

	// MaxUnigrams caps the learned words. Default: 20000.
	MaxUnigrams int `yaml:"max_unigrams"`

	// MaxContexts caps the previous words with learned successors.
	// Default: 5000.
	MaxContexts int `yaml:"max_bigram_contexts"`

	// MaxNextWords caps the successors kept per previous word. Default: 64.
	MaxNextWords int `yaml:"max_next_words"`
}

// TelemetryConfig configures metrics export.
type TelemetryConfig struct {
	// ServiceName is reported as the service.name resource attribute.
	// Default: "glidekey".
	ServiceName string `yaml:"service_name"`

	// GoCollectors adds Go runtime and process metrics to /metrics.
	GoCollectors bool `yaml:"go_collectors"`
}

// Defaults fills every unset field of cfg with its default.
func Defaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Gesture.Preset == "" {
		cfg.Gesture.Preset = PresetDefault
	}
	if len(cfg.Engine.Completion) == 0 {
		cfg.Engine.Completion = []ProviderEntry{
			{Name: ProviderDictionary}, {Name: ProviderContraction},
			{Name: ProviderTypo}, {Name: ProviderUserLearn},
		}
	}
	if len(cfg.Engine.NextWord) == 0 {
		cfg.Engine.NextWord = []ProviderEntry{{Name: ProviderNextWord}, {Name: ProviderUserLearn}}
	}
	if cfg.Engine.MaxResults == 0 {
		cfg.Engine.MaxResults = 3
	}
	if cfg.Engine.CacheSize == 0 {
		cfg.Engine.CacheSize = 512
	}
	if cfg.Learning.Backend == "" {
		cfg.Learning.Backend = "file"
	}
	if cfg.Learning.Path == "" && cfg.Learning.Backend != "postgres" {
		cfg.Learning.Path = "glidekey-learned.json"
	}
	if cfg.Learning.MaxUnigrams == 0 {
		cfg.Learning.MaxUnigrams = 20000
	}
	if cfg.Learning.MaxContexts == 0 {
		cfg.Learning.MaxContexts = 5000
	}
	if cfg.Learning.MaxNextWords == 0 {
		cfg.Learning.MaxNextWords = 64
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "glidekey"
	}
}
