// Package classifier maps glide samples onto keys and turns the resulting key
// sequence into word candidates.
//
// A [Classifier] records which key each sample falls on, collapsing
// consecutive visits of the same key. Without a [Decoder] the only candidate
// is the literal concatenation of the visited keys. With a Decoder the key
// sequence is matched against a dictionary and the closest words are
// returned first.
//
// All methods are safe for concurrent use. Mutations take an exclusive lock;
// [Classifier.Suggest] works on a snapshot so it can run on another goroutine
// while new samples arrive.
package classifier

import (
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/glidekey/pkg/types"
)

// DefaultTolerance is the hit-box padding, in pixels, added on every side of
// a key.
const DefaultTolerance = 20.0

// Option configures a [Classifier].
type Option func(*Classifier)

// WithTolerance sets the hit-box padding. Negative values are ignored.
func WithTolerance(px float64) Option {
	return func(c *Classifier) {
		if px >= 0 {
			c.tolerance = px
		}
	}
}

// WithDecoder enables dictionary decoding of the visited key sequence.
func WithDecoder(d *Decoder) Option {
	return func(c *Classifier) { c.decoder = d }
}

// WithConfidenceThreshold sets the minimum decoder confidence a word needs to
// be suggested. Default: 0.8.
func WithConfidenceThreshold(v float64) Option {
	return func(c *Classifier) { c.threshold = v }
}

// Classifier accumulates the samples of one gesture. Call [Classifier.Clear]
// between gestures.
type Classifier struct {
	decoder *Decoder

	mu        sync.RWMutex
	layout    types.Layout
	tolerance float64
	threshold float64
	points    []types.TouchPoint
	visited   []string
}

// New returns an empty Classifier with no layout.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		tolerance: DefaultTolerance,
		threshold: 0.8,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetLayout replaces the key geometry. Samples already recorded keep the keys
// they were mapped to.
func (c *Classifier) SetLayout(layout types.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = layout.Clone()
}

// SetTolerance changes the hit-box padding for subsequent samples.
func (c *Classifier) SetTolerance(px float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tolerance = math.Max(px, 0)
}

// SetConfidenceThreshold changes the decoder acceptance threshold.
func (c *Classifier) SetConfidenceThreshold(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = v
}

// AddPoint records p and, if it lands on a key that differs from the last
// visited key, appends that key to the visit sequence.
func (c *Classifier) AddPoint(p types.TouchPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.points = append(c.points, p)
	id, ok := nearestKey(c.layout, p.Point(), c.tolerance)
	if !ok {
		return
	}
	if n := len(c.visited); n > 0 && c.visited[n-1] == id {
		return
	}
	c.visited = append(c.visited, id)
}

// VisitedKeys returns a copy of the visit sequence.
func (c *Classifier) VisitedKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.visited)
}

// Len returns the number of recorded samples.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

// Suggest returns up to maxCount word candidates for the current visit
// sequence, best first. maxCount <= 0 means no limit. complete marks the
// final request of a gesture; only final requests fall back to phonetic
// matching. An empty visit sequence yields no candidates.
func (c *Classifier) Suggest(maxCount int, complete bool) []string {
	c.mu.RLock()
	visited := slices.Clone(c.visited)
	layout := c.layout
	threshold := c.threshold
	c.mu.RUnlock()

	if len(visited) == 0 {
		return []string{}
	}
	literal := strings.Join(visited, "")
	if c.decoder == nil {
		return []string{literal}
	}

	matches := c.decoder.Decode(visited, layout, DecodeOptions{
		Threshold: threshold,
		Limit:     maxCount,
		Phonetic:  complete,
	})

	out := make([]string, 0, len(matches)+1)
	if c.decoder.Contains(literal) {
		out = append(out, literal)
	}
	for _, m := range matches {
		if m.Word != literal {
			out = append(out, m.Word)
		}
	}
	if !slices.Contains(out, literal) {
		out = append(out, literal)
	}
	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

// Clear discards all samples and visited keys. The layout is kept.
func (c *Classifier) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = nil
	c.visited = nil
}

// nearestKey returns the key whose padded hit box contains p and whose centre
// is closest to p, with distances divided by the key weight. Ties go to the
// lexically smallest key ID.
func nearestKey(layout types.Layout, p types.Point, tolerance float64) (string, bool) {
	best, bestDist, found := "", math.Inf(1), false
	for id, k := range layout {
		if math.Abs(p.X-k.CenterX) > k.Width/2+tolerance ||
			math.Abs(p.Y-k.CenterY) > k.Height/2+tolerance {
			continue
		}
		d := p.Dist(k.Center()) / k.EffectiveWeight()
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist, found = id, d, true
		}
	}
	return best, found
}
