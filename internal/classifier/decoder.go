package classifier

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/glidekey/pkg/types"
)

const (
	// skipCost is charged for every visited key the word does not use. A
	// glide crosses many keys between the letters it means.
	skipCost = 0.05

	// missCost is charged for every letter of the word the glide never
	// visited.
	missCost = 1.0

	defaultPhoneticThreshold = 0.70
)

// Match is a dictionary word produced by [Decoder.Decode].
type Match struct {
	Word string

	// Confidence is in [0, 1]; 1 means the visit sequence spells the word
	// exactly.
	Confidence float64
}

// DecodeOptions tunes a single [Decoder.Decode] call.
type DecodeOptions struct {
	// Threshold is the minimum confidence for a spatial match.
	Threshold float64

	// Limit caps the number of matches. Zero means no cap.
	Limit int

	// Phonetic enables the Double Metaphone fallback when no spatial match
	// reaches Threshold.
	Phonetic bool
}

type lexEntry struct {
	word    string
	letters []string // word runes with adjacent repeats collapsed
}

// DecoderOption configures a [Decoder].
type DecoderOption func(*Decoder)

// WithPhoneticThreshold sets the minimum Jaro-Winkler similarity between the
// literal key sequence and a phonetically matching word. Default: 0.70.
func WithPhoneticThreshold(v float64) DecoderOption {
	return func(d *Decoder) { d.phoneticThreshold = v }
}

// Decoder matches visited key sequences against a fixed word list. It is
// read-only after construction and safe for concurrent use.
type Decoder struct {
	words             map[string]struct{}
	byEnds            map[[2]string][]lexEntry
	byCode            map[string][]string
	phoneticThreshold float64
}

// NewDecoder indexes words. Words are lowercased; blanks and duplicates are
// dropped.
func NewDecoder(words []string, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		words:             make(map[string]struct{}, len(words)),
		byEnds:            make(map[[2]string][]lexEntry),
		byCode:            make(map[string][]string),
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := d.words[w]; dup {
			continue
		}
		d.words[w] = struct{}{}

		letters := collapse(w)
		ends := [2]string{letters[0], letters[len(letters)-1]}
		d.byEnds[ends] = append(d.byEnds[ends], lexEntry{word: w, letters: letters})

		if primary, _ := matchr.DoubleMetaphone(w); primary != "" {
			d.byCode[primary] = append(d.byCode[primary], w)
		}
	}
	return d
}

// Len returns the number of indexed words.
func (d *Decoder) Len() int { return len(d.words) }

// Contains reports whether w (case-insensitive) is in the word list.
func (d *Decoder) Contains(w string) bool {
	_, ok := d.words[strings.ToLower(w)]
	return ok
}

// Decode returns the dictionary words that best explain visited, best first.
//
// Candidates must start on the first visited key and end on the last one.
// Each candidate is scored with a weighted edit distance between the visit
// sequence and its letters: skipping a visited key is cheap, a missing letter
// costs one, and substituting one key for another costs the distance between
// their centres relative to the key width, capped at one.
func (d *Decoder) Decode(visited []string, layout types.Layout, opts DecodeOptions) []Match {
	if len(visited) == 0 {
		return nil
	}
	keys := make([]string, len(visited))
	for i, k := range visited {
		keys[i] = strings.ToLower(k)
	}
	literal := strings.Join(keys, "")
	layout = lowerLayout(layout)

	var out []Match
	for _, e := range d.byEnds[[2]string{keys[0], keys[len(keys)-1]}] {
		cost := alignCost(keys, e.letters, layout)
		conf := 1 - cost/float64(len(e.letters))
		if conf >= opts.Threshold {
			out = append(out, Match{Word: e.word, Confidence: conf})
		}
	}

	if len(out) == 0 && opts.Phonetic {
		out = d.phonetic(literal, keys[0])
	}

	slices.SortFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		ja := matchr.JaroWinkler(literal, a.Word, false)
		jb := matchr.JaroWinkler(literal, b.Word, false)
		if c := cmp.Compare(jb, ja); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// phonetic returns words that share literal's primary Double Metaphone code
// and first letter, scored by Jaro-Winkler similarity.
func (d *Decoder) phonetic(literal, first string) []Match {
	primary, _ := matchr.DoubleMetaphone(literal)
	if primary == "" {
		return nil
	}
	var out []Match
	for _, w := range d.byCode[primary] {
		if !strings.HasPrefix(w, first) {
			continue
		}
		if s := matchr.JaroWinkler(literal, w, false); s >= d.phoneticThreshold {
			out = append(out, Match{Word: w, Confidence: s})
		}
	}
	return out
}

// alignCost is the weighted edit distance between the visited keys and the
// word letters.
func alignCost(keys, letters []string, layout types.Layout) float64 {
	prev := make([]float64, len(letters)+1)
	cur := make([]float64, len(letters)+1)
	for j := range prev {
		prev[j] = float64(j) * missCost
	}
	for i := 1; i <= len(keys); i++ {
		cur[0] = prev[0] + skipCost
		for j := 1; j <= len(letters); j++ {
			cur[j] = min(
				prev[j]+skipCost,
				cur[j-1]+missCost,
				prev[j-1]+substitution(layout, keys[i-1], letters[j-1]),
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(letters)]
}

func substitution(layout types.Layout, key, letter string) float64 {
	if key == letter {
		return 0
	}
	a, okA := layout[key]
	b, okB := layout[letter]
	if !okA || !okB {
		return missCost
	}
	width := max(a.Width, b.Width)
	if width <= 0 {
		return missCost
	}
	return min(a.Center().Dist(b.Center())/(2*width), missCost)
}

// lowerLayout returns l with lowercase key IDs. l itself is returned when it
// is already lowercase.
func lowerLayout(l types.Layout) types.Layout {
	lower := true
	for id := range l {
		if strings.ToLower(id) != id {
			lower = false
			break
		}
	}
	if lower {
		return l
	}
	out := make(types.Layout, len(l))
	for id, k := range l {
		out[strings.ToLower(id)] = k
	}
	return out
}

// collapse splits w into single-rune strings and drops adjacent repeats,
// mirroring how a glide visits a doubled letter only once.
func collapse(w string) []string {
	out := make([]string, 0, utf8.RuneCountInString(w))
	for _, r := range w {
		s := string(r)
		if n := len(out); n > 0 && out[n-1] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}
