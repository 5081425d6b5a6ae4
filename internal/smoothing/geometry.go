package smoothing

import (
	"math"
	"slices"

	"github.com/MrWong99/glidekey/pkg/types"
)

// Shape summarises the geometry of a path.
type Shape struct {
	Length float64

	// Corners holds the indices reported by [DetectCorners].
	Corners []int

	// Simplified is the point count after [Simplify].
	Simplified int
}

// Analyze measures points with [DefaultCornerThreshold] and
// [DefaultTolerance].
func Analyze(points []types.Point) Shape {
	return Shape{
		Length:     PathLength(points),
		Corners:    DetectCorners(points, DefaultCornerThreshold),
		Simplified: len(Simplify(points, DefaultTolerance)),
	}
}

// PathLength returns the summed distance between consecutive points.
func PathLength(points []types.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i-1].Dist(points[i])
	}
	return total
}

// DetectCorners returns the indices of interior points whose turning angle
// exceeds thresholdDeg. A straight continuation turns by 0°, a reversal by
// 180°.
func DetectCorners(points []types.Point, thresholdDeg float64) []int {
	if len(points) < 3 {
		return nil
	}
	threshold := thresholdDeg * math.Pi / 180
	var corners []int
	for i := 1; i < len(points)-1; i++ {
		if turningAngle(points[i-1], points[i], points[i+1]) > threshold {
			corners = append(corners, i)
		}
	}
	return corners
}

// turningAngle is π minus the unsigned angle between the vectors from b to
// its neighbours.
func turningAngle(a, b, c types.Point) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	if (v1x == 0 && v1y == 0) || (v2x == 0 && v2y == 0) {
		return 0
	}
	dot := v1x*v2x + v1y*v2y
	det := v1x*v2y - v1y*v2x
	return math.Pi - math.Abs(math.Atan2(det, dot))
}

// Simplify reduces points with the Douglas–Peucker algorithm. The first and
// last points are always kept.
func Simplify(points []types.Point, tolerance float64) []types.Point {
	if len(points) < 3 {
		return slices.Clone(points)
	}
	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true
	douglasPeucker(points, 0, len(points)-1, tolerance, keep)

	out := make([]types.Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func douglasPeucker(points []types.Point, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	maxDist, index := 0.0, 0
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(points[i], points[first], points[last]); d > maxDist {
			maxDist, index = d, i
		}
	}
	if maxDist <= tolerance {
		return
	}
	keep[index] = true
	douglasPeucker(points, first, index, tolerance, keep)
	douglasPeucker(points, index, last, tolerance, keep)
}

// segmentDistance returns the distance from p to the closest point of the
// segment ab.
func segmentDistance(p, a, b types.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := clamp(((p.X-a.X)*dx+(p.Y-a.Y)*dy)/lenSq, 0, 1)
	return p.Dist(types.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
