// Package smoothing turns noisy glide samples into a smooth trajectory.
//
// [Smoother.Smooth] runs three stages in order: a per-axis Kalman filter, a
// velocity-adaptive three-point average and cubic Bézier interpolation. The
// package also exposes the geometric helpers used to analyse a path:
// [PathLength], [DetectCorners] and [Simplify].
package smoothing

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/glidekey/pkg/types"
)

const (
	// DefaultProcessNoise is the Kalman process noise Q.
	DefaultProcessNoise = 0.1

	// DefaultMeasurementNoise is the Kalman measurement noise R.
	DefaultMeasurementNoise = 0.1

	// DefaultSegments is the number of Bézier steps per window.
	DefaultSegments = 10

	// DefaultCornerThreshold is the turning angle, in degrees, above which
	// [DetectCorners] reports a corner.
	DefaultCornerThreshold = 45.0

	// DefaultTolerance is the Douglas–Peucker tolerance in pixels.
	DefaultTolerance = 5.0
)

// Option configures a [Smoother].
type Option func(*Smoother)

// WithNoise overrides the Kalman process and measurement noise.
func WithNoise(q, r float64) Option {
	return func(s *Smoother) {
		s.q = q
		s.r = r
	}
}

// WithSegments sets the Bézier steps per four-point window. Values below one
// are ignored.
func WithSegments(n int) Option {
	return func(s *Smoother) {
		if n >= 1 {
			s.segments = n
		}
	}
}

// Stats summarises the work a [Smoother] has done.
type Stats struct {
	Paths     int64
	Fallbacks int64
	TotalTime time.Duration
}

// AverageTime returns the mean processing time per path.
func (s Stats) AverageTime() time.Duration {
	if s.Paths == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Paths)
}

// Smoother applies the smoothing pipeline. It holds no per-path state, so a
// single Smoother may be shared by concurrent gestures.
type Smoother struct {
	q, r     float64
	segments int

	mu          sync.Mutex
	sensitivity float64
	stats       Stats
}

// New returns a Smoother with default noise parameters and ten Bézier
// segments.
func New(opts ...Option) *Smoother {
	s := &Smoother{
		q:           DefaultProcessNoise,
		r:           DefaultMeasurementNoise,
		segments:    DefaultSegments,
		sensitivity: 1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetSensitivity scales both Kalman noise terms by (2 - v). v is clamped to
// [0.1, 1.9]; 1 restores the configured noise.
func (s *Smoother) SetSensitivity(v float64) {
	v = clamp(v, 0.1, 1.9)
	s.mu.Lock()
	s.sensitivity = v
	s.mu.Unlock()
	slog.Debug("smoother sensitivity updated", "sensitivity", v)
}

// Sensitivity returns the current sensitivity.
func (s *Smoother) Sensitivity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitivity
}

// Stats returns a snapshot of the processing counters.
func (s *Smoother) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Smooth returns a smoothed copy of points. factor is the base weight of the
// adaptive averaging stage. Paths with fewer than three points are returned
// unchanged. If any stage fails, the raw points are returned.
func (s *Smoother) Smooth(points []types.Point, factor float64) (out []types.Point) {
	if len(points) < 3 {
		return slices.Clone(points)
	}

	start := time.Now()
	s.mu.Lock()
	scale := 2 - s.sensitivity
	s.mu.Unlock()

	fellBack := false
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("path smoothing failed, using raw points", "panic", r)
			out = slices.Clone(points)
			fellBack = true
		}
		s.mu.Lock()
		s.stats.Paths++
		s.stats.TotalTime += time.Since(start)
		if fellBack {
			s.stats.Fallbacks++
		}
		s.mu.Unlock()
	}()

	filtered := kalmanPass(points, s.q*scale, s.r*scale)
	averaged := adaptivePass(filtered, factor)
	return bezierPass(averaged, s.segments)
}

func kalmanPass(points []types.Point, q, r float64) []types.Point {
	kx, ky := newKalman1D(q, r), newKalman1D(q, r)
	out := make([]types.Point, len(points))
	for i, p := range points {
		out[i] = types.Point{X: kx.update(p.X), Y: ky.update(p.Y)}
	}
	return out
}

// adaptivePass blends every interior point with its neighbours. The blend
// weight grows with the local speed, expressed as the mean distance to the
// two neighbours.
func adaptivePass(points []types.Point, base float64) []types.Point {
	if len(points) < 3 {
		return points
	}
	out := make([]types.Point, len(points))
	out[0] = points[0]
	out[len(points)-1] = points[len(points)-1]
	for i := 1; i < len(points)-1; i++ {
		prev, curr, next := points[i-1], points[i], points[i+1]
		v := (prev.Dist(curr) + curr.Dist(next)) / 2
		f := base * clamp(1+v/1000, 0.1, 0.8)
		out[i] = types.Point{
			X: prev.X*f + curr.X*(1-2*f) + next.X*f,
			Y: prev.Y*f + curr.Y*(1-2*f) + next.Y*f,
		}
	}
	return out
}

// bezierPass treats each consecutive, non-overlapping group of four points as
// the control polygon of a cubic curve and samples it at segments+1 evenly
// spaced parameters. Up to three trailing points are copied as they are.
func bezierPass(points []types.Point, segments int) []types.Point {
	if len(points) < 4 {
		return points
	}
	windows := len(points) / 4
	out := make([]types.Point, 0, windows*(segments+1)+len(points)%4)
	for w := range windows {
		p0, p1, p2, p3 := points[4*w], points[4*w+1], points[4*w+2], points[4*w+3]
		for step := 0; step <= segments; step++ {
			out = append(out, cubic(p0, p1, p2, p3, float64(step)/float64(segments)))
		}
	}
	return append(out, points[windows*4:]...)
}

func cubic(p0, p1, p2, p3 types.Point, t float64) types.Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return types.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
