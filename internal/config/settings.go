package config

import (
	"time"

	"github.com/MrWong99/glidekey/pkg/gesture"
)

// Setting is one hot-reloadable configuration value. The set of variants is
// closed: every type implementing Setting is declared in this file and
// [Apply] handles each of them.
type Setting interface {
	// Key returns the YAML path of the setting.
	Key() string

	setting()
}

// Gesture settings.
type (
	MinSwipeDistance    float64
	MaxSwipeVelocity    float64
	SmoothingFactor     float64
	ConfidenceThreshold float64
	MaxSuggestions      int
	MaxAlternatives     int
	PreviewEnabled      bool
	PreviewInterval     time.Duration
	KeyTolerance        float64
	SmoothOnComplete    bool
	Sensitivity         float64
)

func (MinSwipeDistance) Key() string    { return "gesture.min_swipe_distance" }
func (MaxSwipeVelocity) Key() string    { return "gesture.max_swipe_velocity" }
func (SmoothingFactor) Key() string     { return "gesture.smoothing_factor" }
func (ConfidenceThreshold) Key() string { return "gesture.confidence_threshold" }
func (MaxSuggestions) Key() string      { return "gesture.max_suggestions" }
func (MaxAlternatives) Key() string     { return "gesture.max_alternatives" }
func (PreviewEnabled) Key() string      { return "gesture.preview_enabled" }
func (PreviewInterval) Key() string     { return "gesture.preview_interval" }
func (KeyTolerance) Key() string        { return "gesture.key_tolerance" }
func (SmoothOnComplete) Key() string    { return "gesture.smooth_on_complete" }
func (Sensitivity) Key() string         { return "gesture.sensitivity" }

// Key implements [Setting]; a LogLevel doubles as the server.log_level
// setting.
func (LogLevel) Key() string { return "server.log_level" }

func (MinSwipeDistance) setting()    {}
func (MaxSwipeVelocity) setting()    {}
func (SmoothingFactor) setting()     {}
func (ConfidenceThreshold) setting() {}
func (MaxSuggestions) setting()      {}
func (MaxAlternatives) setting()     {}
func (PreviewEnabled) setting()      {}
func (PreviewInterval) setting()     {}
func (KeyTolerance) setting()        {}
func (SmoothOnComplete) setting()    {}
func (Sensitivity) setting()         {}
func (LogLevel) setting()            {}

// Apply returns cfg with every gesture setting applied in order. Settings
// that do not belong to the gesture configuration are skipped.
func Apply(cfg gesture.Configuration, settings ...Setting) gesture.Configuration {
	for _, s := range settings {
		switch v := s.(type) {
		case MinSwipeDistance:
			cfg.MinSwipeDistance = float64(v)
		case MaxSwipeVelocity:
			cfg.MaxSwipeVelocity = float64(v)
		case SmoothingFactor:
			cfg.SmoothingFactor = float64(v)
		case ConfidenceThreshold:
			cfg.ConfidenceThreshold = float64(v)
		case MaxSuggestions:
			cfg.MaxSuggestions = int(v)
		case MaxAlternatives:
			cfg.MaxAlternatives = int(v)
		case PreviewEnabled:
			cfg.PreviewEnabled = bool(v)
		case PreviewInterval:
			cfg.PreviewInterval = time.Duration(v)
		case KeyTolerance:
			cfg.KeyTolerance = float64(v)
		case SmoothOnComplete:
			cfg.SmoothOnComplete = bool(v)
		case Sensitivity:
			cfg.Sensitivity = float64(v)
		case LogLevel:
		}
	}
	return cfg
}
