// Package gesture defines the glide path model and the tunables that govern
// how a glide gesture is recognised.
//
// A [Path] accumulates the touch samples of exactly one gesture together with
// running metrics (distance, pressure, velocity). A [Configuration] holds the
// recognition parameters; [Default], [HighAccuracy] and [Performance] return
// the built-in presets.
package gesture

import (
	"slices"
	"time"

	"github.com/MrWong99/glidekey/pkg/types"
)

// Path is the ordered list of touch samples belonging to one gesture.
//
// Path is not safe for concurrent use; the glide orchestrator owns it and
// guards it with its own lock.
type Path struct {
	points        []types.TouchPoint
	totalDistance float64
	pressureSum   float64
	peakVelocity  float64
	completed     bool
}

// NewPath returns an empty path.
func NewPath() *Path {
	return &Path{}
}

// Add appends tp and updates the running metrics. Samples added after
// [Path.Complete] are ignored.
func (p *Path) Add(tp types.TouchPoint) {
	if p.completed {
		return
	}
	if n := len(p.points); n > 0 {
		prev := p.points[n-1]
		d := prev.Point().Dist(tp.Point())
		p.totalDistance += d

		// Clock jitter can deliver equal or decreasing timestamps.
		dt := tp.TimestampMs - prev.TimestampMs
		if dt < 1 {
			dt = 1
		}
		if v := d / (float64(dt) / 1000); v > p.peakVelocity {
			p.peakVelocity = v
		}
	}
	p.pressureSum += tp.Pressure
	p.points = append(p.points, tp)
}

// Complete marks the path as finished.
func (p *Path) Complete() { p.completed = true }

// Completed reports whether [Path.Complete] has been called.
func (p *Path) Completed() bool { return p.completed }

// Len returns the number of samples.
func (p *Path) Len() int { return len(p.points) }

// Points returns a copy of the samples.
func (p *Path) Points() []types.TouchPoint {
	return slices.Clone(p.points)
}

// XY returns the sample positions without timing information.
func (p *Path) XY() []types.Point {
	out := make([]types.Point, len(p.points))
	for i, tp := range p.points {
		out[i] = tp.Point()
	}
	return out
}

// TotalDistance returns the summed straight-line distance between
// consecutive samples.
func (p *Path) TotalDistance() float64 { return p.totalDistance }

// PeakVelocity returns the highest velocity between two consecutive samples,
// in pixels per second.
func (p *Path) PeakVelocity() float64 { return p.peakVelocity }

// AveragePressure returns the mean pressure over all samples, or zero for an
// empty path.
func (p *Path) AveragePressure() float64 {
	if len(p.points) == 0 {
		return 0
	}
	return p.pressureSum / float64(len(p.points))
}

// Duration returns the time between the first and the last sample.
func (p *Path) Duration() time.Duration {
	if len(p.points) < 2 {
		return 0
	}
	ms := p.points[len(p.points)-1].TimestampMs - p.points[0].TimestampMs
	return time.Duration(ms) * time.Millisecond
}

// AverageVelocity returns TotalDistance divided by Duration, in pixels per
// second. The duration is floored to one millisecond.
func (p *Path) AverageVelocity() float64 {
	if len(p.points) < 2 {
		return 0
	}
	d := max(p.Duration(), time.Millisecond)
	return p.totalDistance / d.Seconds()
}
