package gesture_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/glidekey/pkg/gesture"
	"github.com/MrWong99/glidekey/pkg/types"
)

func TestPath_Metrics(t *testing.T) {
	t.Parallel()

	p := gesture.NewPath()
	p.Add(types.TouchPoint{X: 0, Y: 0, TimestampMs: 0, Pressure: 0.5})
	p.Add(types.TouchPoint{X: 3, Y: 4, TimestampMs: 10, Pressure: 1.0})
	p.Add(types.TouchPoint{X: 3, Y: 14, TimestampMs: 10, Pressure: 0.0})

	if got := p.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := p.TotalDistance(); got != 15 {
		t.Errorf("TotalDistance() = %v, want 15", got)
	}
	if got := p.AveragePressure(); got != 0.5 {
		t.Errorf("AveragePressure() = %v, want 0.5", got)
	}
	// The last segment has dt=0, floored to 1ms: 10px / 0.001s.
	if got := p.PeakVelocity(); math.Abs(got-10000) > 1e-9 {
		t.Errorf("PeakVelocity() = %v, want 10000", got)
	}
	if got := p.Duration(); got != 10*time.Millisecond {
		t.Errorf("Duration() = %v, want 10ms", got)
	}
	if got := p.AverageVelocity(); math.Abs(got-1500) > 1e-9 {
		t.Errorf("AverageVelocity() = %v, want 1500", got)
	}
}

func TestPath_CompleteFreezes(t *testing.T) {
	t.Parallel()

	p := gesture.NewPath()
	p.Add(types.TouchPoint{X: 1, Y: 1})
	p.Complete()
	p.Add(types.TouchPoint{X: 2, Y: 2})

	if !p.Completed() {
		t.Error("Completed() = false after Complete")
	}
	if got := p.Len(); got != 1 {
		t.Errorf("Len() = %d after Complete, want 1", got)
	}
}

func TestPath_PointsIsCopy(t *testing.T) {
	t.Parallel()

	p := gesture.NewPath()
	p.Add(types.TouchPoint{X: 1, Y: 1})
	pts := p.Points()
	pts[0].X = 99
	if p.XY()[0].X != 1 {
		t.Error("Points() exposes internal storage")
	}
}

func TestPresets_Validate(t *testing.T) {
	t.Parallel()

	presets := map[string]gesture.Configuration{
		"default":       gesture.Default(),
		"high-accuracy": gesture.HighAccuracy(),
		"performance":   gesture.Performance(),
	}
	for name, cfg := range presets {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s preset invalid: %v", name, err)
		}
	}
	if gesture.Performance().PreviewEnabled {
		t.Error("performance preset should disable previews")
	}
	if got := gesture.Default().PreviewInterval; got != 16*time.Millisecond {
		t.Errorf("default preview interval = %v, want 16ms", got)
	}
}

func TestConfiguration_ValidateCollectsAll(t *testing.T) {
	t.Parallel()

	cfg := gesture.Default()
	cfg.SmoothingFactor = 0.9
	cfg.MaxSuggestions = 0
	cfg.ConfidenceThreshold = 2
	cfg.Sensitivity = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"smoothing factor", "max suggestions", "confidence threshold", "sensitivity"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
