// Package types defines the shared types used across all glidekey packages.
//
// These types form the lingua franca between the gesture pipeline, the
// suggestion providers, the ranking engine and the learning store. Each
// package defines its own domain types, but cross-cutting data structures live
// here to avoid circular imports.
package types

import "math"

// Point is a two-dimensional position in keyboard-view pixels.
type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// TouchPoint is a single sampled finger position.
type TouchPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// TimestampMs is the sample time in milliseconds. Only differences between
	// samples are meaningful.
	TimestampMs int64 `json:"t"`

	// Pressure is the reported contact pressure. Zero when the device does
	// not report pressure.
	Pressure float64 `json:"p,omitempty"`
}

// Point drops the timing information of tp.
func (tp TouchPoint) Point() Point {
	return Point{X: tp.X, Y: tp.Y}
}

// KeyGeometry describes one key of the on-screen layout. Geometry is expressed
// in the same coordinate space as [TouchPoint].
type KeyGeometry struct {
	// KeyID is the identifier emitted when the key is visited, usually the
	// lowercase letter printed on the key.
	KeyID string `json:"id" yaml:"id"`

	CenterX float64 `json:"x" yaml:"x"`
	CenterY float64 `json:"y" yaml:"y"`
	Width   float64 `json:"w" yaml:"w"`
	Height  float64 `json:"h" yaml:"h"`

	// Weight biases hit testing towards the key: candidate keys are ranked
	// by distance divided by weight. Zero means 1.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// EffectiveWeight returns Weight, or 1 when Weight is not positive.
func (k KeyGeometry) EffectiveWeight() float64 {
	if k.Weight <= 0 {
		return 1
	}
	return k.Weight
}

// Center returns the key's centre point.
func (k KeyGeometry) Center() Point {
	return Point{X: k.CenterX, Y: k.CenterY}
}

// Layout maps key identifiers to their geometry.
type Layout map[string]KeyGeometry

// Clone returns an independent copy of l.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for id, k := range l {
		out[id] = k
	}
	return out
}

// LayoutFromKeys builds a [Layout] from a list of keys. Later duplicates of the
// same KeyID replace earlier ones.
func LayoutFromKeys(keys []KeyGeometry) Layout {
	out := make(Layout, len(keys))
	for _, k := range keys {
		out[k.KeyID] = k
	}
	return out
}

// Source identifies which provider produced a [PredictionCandidate] and
// carries the fixed ranking weight for that kind of candidate.
type Source int

const (
	SourceExactMatch Source = iota
	SourcePrefixCompletion
	SourceNextWordPrediction
	SourceUserLearnedCompletion
	SourceUserLearnedExact
	SourceUserLearnedNextWord
	SourceTypoCorrection
	SourceContraction
)

// Weight returns the ranking multiplier for s.
func (s Source) Weight() float64 {
	switch s {
	case SourceContraction:
		return 1.6
	case SourceTypoCorrection:
		return 1.5
	case SourceUserLearnedNextWord:
		return 1.4
	case SourceUserLearnedExact:
		return 1.3
	case SourceUserLearnedCompletion:
		return 1.2
	case SourceNextWordPrediction:
		return 1.1
	case SourcePrefixCompletion:
		return 1.0
	case SourceExactMatch:
		return 0.9
	default:
		return 1.0
	}
}

// String returns the wire name of s.
func (s Source) String() string {
	switch s {
	case SourceExactMatch:
		return "exact_match"
	case SourcePrefixCompletion:
		return "prefix_completion"
	case SourceNextWordPrediction:
		return "next_word_prediction"
	case SourceUserLearnedCompletion:
		return "user_learned_completion"
	case SourceUserLearnedExact:
		return "user_learned_exact"
	case SourceUserLearnedNextWord:
		return "user_learned_next_word"
	case SourceTypoCorrection:
		return "typo_correction"
	case SourceContraction:
		return "contraction"
	default:
		return "unknown"
	}
}

// PredictionCandidate is a scored word emitted by a suggestion provider.
type PredictionCandidate struct {
	Word string

	// Score is the provider-local confidence, conventionally in [0, 100] but
	// not bounded.
	Score float64

	Source Source

	// IsCompletion marks candidates that complete or replace the current
	// input rather than follow it.
	IsCompletion bool
}

// Weighted returns Score multiplied by the weight of the candidate's source.
func (c PredictionCandidate) Weighted() float64 {
	return c.Score * c.Source.Weight()
}

// SuggestionContext describes the text state a suggestion request is made in.
type SuggestionContext struct {
	// CurrentInput is the partial word being typed. Empty right after a space.
	CurrentInput string `json:"input"`

	// IsAfterSpace reports whether the cursor directly follows a completed
	// word.
	IsAfterSpace bool `json:"after_space"`

	// PreviousWord is the last completed word, or empty when there is none.
	PreviousWord string `json:"previous,omitempty"`
}

// UserWordData is the personalization record kept for each learned word.
type UserWordData struct {
	Frequency int `json:"frequency"`

	// LastUsedMs is the Unix time in milliseconds of the most recent use.
	LastUsedMs int64 `json:"last_used_ms"`

	// Contexts lists the distinct previous words the word has followed,
	// sorted ascending.
	Contexts []string `json:"contexts,omitempty"`
}

// UserTables is the persisted state of the user learning provider.
type UserTables struct {
	Unigrams map[string]UserWordData  `json:"unigrams"`
	Bigrams  map[string]map[string]int `json:"bigrams"`
}

// NewUserTables returns empty, non-nil tables.
func NewUserTables() UserTables {
	return UserTables{
		Unigrams: make(map[string]UserWordData),
		Bigrams:  make(map[string]map[string]int),
	}
}

// GestureEventType enumerates the touch event kinds fed to the glide
// orchestrator.
type GestureEventType int

const (
	GestureStart GestureEventType = iota
	GestureMove
	GestureEnd
	GestureCancel
)

// String returns the wire name of t.
func (t GestureEventType) String() string {
	switch t {
	case GestureStart:
		return "start"
	case GestureMove:
		return "move"
	case GestureEnd:
		return "end"
	case GestureCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// GestureEvent is one touch event.
type GestureEvent struct {
	Type  GestureEventType
	Point TouchPoint
}
