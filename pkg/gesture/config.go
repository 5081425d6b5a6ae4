package gesture

import (
	"errors"
	"fmt"
	"time"
)

// Configuration holds the tunables of glide recognition.
type Configuration struct {
	// MinSwipeDistance is the minimum total path length, in pixels, for a
	// gesture to count as a glide. Shorter gestures complete without a word.
	// Zero disables the check.
	MinSwipeDistance float64

	// MaxSwipeVelocity caps the velocity, in pixels per second, that the
	// smoother treats as intentional motion.
	MaxSwipeVelocity float64

	// SmoothingFactor is the base weight of the velocity-adaptive averaging
	// stage. Must be within [0, 0.5].
	SmoothingFactor float64

	// ConfidenceThreshold is the minimum decoder confidence in [0, 1] a
	// dictionary word needs to be suggested for a glide.
	ConfidenceThreshold float64

	// MaxSuggestions is how many suggestions are requested when a gesture
	// completes.
	MaxSuggestions int

	// MaxAlternatives caps the alternatives emitted alongside a committed
	// word.
	MaxAlternatives int

	// PreviewEnabled turns on live top-word previews while gliding.
	PreviewEnabled bool

	// PreviewInterval is the minimum time between two preview requests.
	PreviewInterval time.Duration

	// KeyTolerance extends every key's hit box by this many pixels on each
	// side.
	KeyTolerance float64

	// SmoothOnComplete replays the smoothed path into the classifier before
	// the final suggestions are computed.
	SmoothOnComplete bool

	// Sensitivity scales the smoother's noise model by (2 - Sensitivity).
	// Higher values follow the raw samples more closely. Must be within
	// [0.1, 1.9].
	Sensitivity float64
}

// Default returns the balanced preset.
func Default() Configuration {
	return Configuration{
		MinSwipeDistance:    40,
		MaxSwipeVelocity:    3000,
		SmoothingFactor:     0.4,
		ConfidenceThreshold: 0.8,
		MaxSuggestions:      8,
		MaxAlternatives:     3,
		PreviewEnabled:      true,
		PreviewInterval:     16 * time.Millisecond,
		KeyTolerance:        20,
		Sensitivity:         1,
	}
}

// HighAccuracy returns a preset tuned for recall: shorter glides are accepted,
// the smoother works harder and weaker dictionary matches are admitted.
func HighAccuracy() Configuration {
	c := Default()
	c.MinSwipeDistance = 30
	c.MaxSwipeVelocity = 4000
	c.SmoothingFactor = 0.5
	c.ConfidenceThreshold = 0.75
	c.SmoothOnComplete = true
	return c
}

// Performance returns a preset tuned for low latency: previews are off and
// only confident dictionary matches are admitted.
func Performance() Configuration {
	c := Default()
	c.MinSwipeDistance = 50
	c.MaxSwipeVelocity = 2500
	c.SmoothingFactor = 0.3
	c.ConfidenceThreshold = 0.85
	c.PreviewEnabled = false
	return c
}

// Validate checks that every field holds a usable value. All violations are
// reported together.
func (c Configuration) Validate() error {
	var errs []error
	if c.MinSwipeDistance < 0 {
		errs = append(errs, fmt.Errorf("min swipe distance must be >= 0, got %v", c.MinSwipeDistance))
	}
	if c.MaxSwipeVelocity <= 0 {
		errs = append(errs, fmt.Errorf("max swipe velocity must be > 0, got %v", c.MaxSwipeVelocity))
	}
	if c.SmoothingFactor < 0 || c.SmoothingFactor > 0.5 {
		errs = append(errs, fmt.Errorf("smoothing factor must be within [0, 0.5], got %v", c.SmoothingFactor))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be within [0, 1], got %v", c.ConfidenceThreshold))
	}
	if c.MaxSuggestions < 1 {
		errs = append(errs, fmt.Errorf("max suggestions must be >= 1, got %d", c.MaxSuggestions))
	}
	if c.MaxAlternatives < 0 {
		errs = append(errs, fmt.Errorf("max alternatives must be >= 0, got %d", c.MaxAlternatives))
	}
	if c.PreviewInterval < 0 {
		errs = append(errs, fmt.Errorf("preview interval must be >= 0, got %v", c.PreviewInterval))
	}
	if c.KeyTolerance < 0 {
		errs = append(errs, fmt.Errorf("key tolerance must be >= 0, got %v", c.KeyTolerance))
	}
	if c.Sensitivity < 0.1 || c.Sensitivity > 1.9 {
		errs = append(errs, fmt.Errorf("sensitivity must be within [0.1, 1.9], got %v", c.Sensitivity))
	}
	return errors.Join(errs...)
}
