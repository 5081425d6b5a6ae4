package classifier_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/glidekey/internal/classifier"
	"github.com/MrWong99/glidekey/pkg/types"
)

func words(ms []classifier.Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Word
	}
	return out
}

func TestDecoder_ExactSequence(t *testing.T) {
	t.Parallel()

	d := classifier.NewDecoder([]string{"Hello", "hello", " ", "help"})
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	got := d.Decode([]string{"h", "e", "l", "o"}, qwerty(), classifier.DecodeOptions{Threshold: 0.8})
	if len(got) != 1 || got[0].Word != "hello" || got[0].Confidence != 1 {
		t.Errorf("Decode = %+v, want hello with confidence 1", got)
	}
}

func TestDecoder_SkipsPassedOverKeys(t *testing.T) {
	t.Parallel()

	// A glide from t to o crosses y, u and i.
	d := classifier.NewDecoder([]string{"to", "too", "two"})
	got := d.Decode([]string{"t", "y", "u", "i", "o"}, qwerty(), classifier.DecodeOptions{Threshold: 0.8})
	if !slices.Equal(words(got), []string{"to", "too"}) && !slices.Equal(words(got), []string{"too", "to"}) {
		t.Errorf("Decode = %v, want to and too", words(got))
	}
	for _, m := range got {
		if m.Confidence < 0.8 || m.Confidence > 1 {
			t.Errorf("%s confidence %v outside [0.8, 1]", m.Word, m.Confidence)
		}
	}
}

func TestDecoder_RequiresMatchingEnds(t *testing.T) {
	t.Parallel()

	d := classifier.NewDecoder([]string{"cart", "card"})
	got := d.Decode([]string{"c", "a", "r", "t"}, qwerty(), classifier.DecodeOptions{})
	if !slices.Equal(words(got), []string{"cart"}) {
		t.Errorf("Decode = %v, want [cart]", words(got))
	}
}

func TestDecoder_LimitAndOrder(t *testing.T) {
	t.Parallel()

	d := classifier.NewDecoder([]string{"sad", "sand", "said", "sd"})
	got := d.Decode([]string{"s", "a", "n", "d"}, qwerty(), classifier.DecodeOptions{Limit: 2})
	if len(got) != 2 {
		t.Fatalf("Decode returned %d matches, want 2", len(got))
	}
	if got[0].Word != "sand" {
		t.Errorf("best match = %q, want sand", got[0].Word)
	}
	if got[0].Confidence < got[1].Confidence {
		t.Errorf("matches not sorted by confidence: %+v", got)
	}
}

func TestDecoder_PhoneticFallback(t *testing.T) {
	t.Parallel()

	d := classifier.NewDecoder([]string{"night"}, classifier.WithPhoneticThreshold(0))
	keys := []string{"n", "i", "t", "e"}

	if got := d.Decode(keys, qwerty(), classifier.DecodeOptions{Threshold: 0.8}); len(got) != 0 {
		t.Errorf("without phonetic fallback: %v, want none", words(got))
	}
	got := d.Decode(keys, qwerty(), classifier.DecodeOptions{Threshold: 0.8, Phonetic: true})
	if !slices.Equal(words(got), []string{"night"}) {
		t.Errorf("with phonetic fallback: %v, want [night]", words(got))
	}
}

func TestDecoder_EmptyInput(t *testing.T) {
	t.Parallel()

	d := classifier.NewDecoder([]string{"a"})
	if got := d.Decode(nil, qwerty(), classifier.DecodeOptions{}); got != nil {
		t.Errorf("Decode(nil) = %v, want nil", got)
	}
}

func TestDecoder_UppercaseLayoutIDs(t *testing.T) {
	t.Parallel()

	upper := make(types.Layout)
	for id, k := range qwerty() {
		k.KeyID = strings.ToUpper(id)
		upper[k.KeyID] = k
	}

	// r is one key away from e, so the substitution stays cheap.
	d := classifier.NewDecoder([]string{"hello"})
	keys := []string{"H", "R", "L", "O"}
	opts := classifier.DecodeOptions{Threshold: 0.8}

	want := d.Decode([]string{"h", "r", "l", "o"}, qwerty(), opts)
	got := d.Decode(keys, upper, opts)
	if len(want) != 1 || want[0].Word != "hello" {
		t.Fatalf("lowercase layout: Decode = %+v, want hello", want)
	}
	if !slices.Equal(got, want) {
		t.Errorf("uppercase layout: Decode = %+v, want %+v", got, want)
	}
}
