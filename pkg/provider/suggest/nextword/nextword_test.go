package nextword_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/MrWong99/glidekey/pkg/provider/suggest/nextword"
	"github.com/MrWong99/glidekey/pkg/types"
)

func TestSuggest_DescendingScores(t *testing.T) {
	t.Parallel()

	p := nextword.New()
	got := p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "Good"})
	want := []string{"morning", "afternoon", "evening", "night", "job", "luck"}
	if len(got) != len(want) {
		t.Fatalf("Suggest(good) = %+v", got)
	}
	for i, c := range got {
		if c.Word != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, c.Word, want[i])
		}
		if c.Score != 100-float64(i) {
			t.Errorf("candidate %d score = %v, want %v", i, c.Score, 100-float64(i))
		}
		if c.Source != types.SourceNextWordPrediction || c.IsCompletion {
			t.Errorf("candidate %d = %+v, want next-word, not completion", i, c)
		}
	}
}

func TestSuggest_RequiresSpaceAndPreviousWord(t *testing.T) {
	t.Parallel()

	p := nextword.New()
	cases := []types.SuggestionContext{
		{PreviousWord: "good"},
		{IsAfterSpace: true},
		{IsAfterSpace: true, PreviousWord: "zebra"},
	}
	for _, sc := range cases {
		if got := p.Suggest(sc); got != nil {
			t.Errorf("Suggest(%+v) = %+v, want nil", sc, got)
		}
	}
}

func TestWithTable(t *testing.T) {
	t.Parallel()

	p := nextword.New(nextword.WithTable(map[string][]string{"good": {"morning", "job", "luck"}}))
	got := p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "good"})
	if len(got) != 3 || got[1].Word != "job" {
		t.Errorf("Suggest = %+v, want morning, job, luck", got)
	}
	if p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "i"}) != nil {
		t.Error("WithTable should replace the built-in table")
	}
}

func TestInit_AssetOverrides(t *testing.T) {
	t.Parallel()

	p := nextword.New()
	fsys := fstest.MapFS{"bigrams.yaml": {Data: []byte("good: [night]\nhappy: [birthday, new]\n")}}
	if err := p.Init(context.Background(), fsys); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "good"}); len(got) != 1 || got[0].Word != "night" {
		t.Errorf("Suggest(good) = %+v, want [night]", got)
	}
	if got := p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "happy"}); len(got) != 2 {
		t.Errorf("Suggest(happy) = %+v, want 2", got)
	}
	if got := p.Suggest(types.SuggestionContext{IsAfterSpace: true, PreviousWord: "i"}); len(got) != 5 {
		t.Errorf("built-in entry lost: %+v", got)
	}
}
