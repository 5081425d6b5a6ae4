package suggestion_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/MrWong99/glidekey/internal/suggestion"
	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/contraction"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/dictionary"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/mock"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/nextword"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/typo"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/userlearn"
	"github.com/MrWong99/glidekey/pkg/types"
)

// newEngine builds the production provider sets over a small dictionary.
func newEngine(t *testing.T, words []string, bigrams map[string][]string) (*suggestion.Engine, *userlearn.Provider) {
	t.Helper()
	user := userlearn.New()
	eng := suggestion.New(suggestion.Providers{
		Completion: []suggest.Provider{
			dictionary.New(dictionary.WithWords(words)),
			contraction.New(),
			typo.New(typo.WithWords(words)),
			user,
		},
		NextWord: []suggest.Provider{nextword.New(nextword.WithTable(bigrams)), user},
		Learner:  user,
	})
	if err := eng.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return eng, user
}

func TestEngine_PrefixCompletion(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t, []string{"hello", "help", "helmet"}, nil)
	got := eng.Suggest(context.Background(), types.SuggestionContext{CurrentInput: "hel"})

	// "help" is both the best completion and a one-edit typo correction.
	want := []string{"help", "hello", "helmet"}
	if !slices.Equal(got, want) {
		t.Errorf("Suggest(hel) = %v, want %v", got, want)
	}
}

func TestEngine_NextWord(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t, nil, map[string][]string{"good": {"morning", "job", "luck"}})
	got := eng.Suggest(context.Background(), types.SuggestionContext{
		IsAfterSpace: true,
		PreviousWord: "good",
	})
	want := []string{"morning", "job", "luck"}
	if !slices.Equal(got, want) {
		t.Errorf("Suggest(after good) = %v, want %v", got, want)
	}
}

func TestEngine_LearnedNextWordOutranksStatic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, user := newEngine(t, nil, map[string][]string{"good": {"morning", "job", "luck"}})
	sc := types.SuggestionContext{IsAfterSpace: true, PreviousWord: "good"}

	// Populate the cache before learning to check that Learn purges it.
	_ = eng.Suggest(ctx, sc)

	if err := eng.Learn(ctx, "night", "good"); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if got := user.Frequency("night"); got != 1 {
		t.Fatalf("Frequency(night) = %d, want 1", got)
	}

	// 1*20*1.4 = 28 is below the static successors, so learn it a few more
	// times: 4*20*1.4 = 112 > 100*1.1.
	for range 3 {
		if err := eng.Learn(ctx, "night", "good"); err != nil {
			t.Fatalf("Learn: %v", err)
		}
	}
	got := eng.Suggest(ctx, sc)
	want := []string{"night", "morning", "job"}
	if !slices.Equal(got, want) {
		t.Errorf("Suggest(after good) = %v, want %v", got, want)
	}
}

func TestEngine_NotReady(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Candidates: []types.PredictionCandidate{{Word: "hi", Score: 1}}}
	eng := suggestion.New(suggestion.Providers{Completion: []suggest.Provider{p}, Learner: p})

	if got := eng.Suggest(context.Background(), types.SuggestionContext{CurrentInput: "h"}); got != nil {
		t.Errorf("Suggest before Init = %v, want nil", got)
	}
	if err := eng.Learn(context.Background(), "hi", ""); !errors.Is(err, suggestion.ErrNotInitialized) {
		t.Errorf("Learn before Init = %v, want ErrNotInitialized", err)
	}
	if eng.Ready() {
		t.Error("Ready() = true before Init")
	}
	if _, suggests, _ := p.Calls(); suggests != 0 {
		t.Errorf("provider queried %d times before Init", suggests)
	}
}

func TestEngine_InitOnceAcrossSets(t *testing.T) {
	t.Parallel()

	shared := &mock.Provider{ProviderName: "shared"}
	only := &mock.Provider{ProviderName: "only"}
	eng := suggestion.New(suggestion.Providers{
		Completion: []suggest.Provider{shared, only},
		NextWord:   []suggest.Provider{shared},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.Init(context.Background())
		}()
	}
	wg.Wait()

	if inits, _, _ := shared.Calls(); inits != 1 {
		t.Errorf("shared provider initialised %d times, want 1", inits)
	}
	if inits, _, _ := only.Calls(); inits != 1 {
		t.Errorf("provider initialised %d times, want 1", inits)
	}
	if !eng.Ready() {
		t.Error("Ready() = false after Init")
	}
}

func TestEngine_ProviderInitFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	boom := errors.New("asset missing")
	broken := &mock.Provider{ProviderName: "broken", InitErr: boom}
	ok := &mock.Provider{
		ProviderName: "ok",
		Candidates:   []types.PredictionCandidate{{Word: "hey", Score: 50}},
	}
	eng := suggestion.New(suggestion.Providers{Completion: []suggest.Provider{broken, ok}})

	err := eng.Init(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Init error = %v, want wrapped %v", err, boom)
	}
	if !eng.Ready() {
		t.Fatal("engine should be ready after a provider failure")
	}
	if got := eng.Suggest(context.Background(), types.SuggestionContext{CurrentInput: "he"}); !slices.Equal(got, []string{"hey"}) {
		t.Errorf("Suggest = %v, want [hey]", got)
	}
	// A second Init reports the same result without re-running providers.
	if err2 := eng.Init(context.Background()); !errors.Is(err2, boom) {
		t.Errorf("second Init = %v", err2)
	}
	if inits, _, _ := broken.Calls(); inits != 1 {
		t.Errorf("broken provider initialised %d times, want 1", inits)
	}
}

func TestEngine_SelectsProviderSet(t *testing.T) {
	t.Parallel()

	comp := &mock.Provider{ProviderName: "comp", Candidates: []types.PredictionCandidate{{Word: "word", Score: 1}}}
	next := &mock.Provider{ProviderName: "next", Candidates: []types.PredictionCandidate{{Word: "next", Score: 1}}}
	eng := suggestion.New(suggestion.Providers{
		Completion: []suggest.Provider{comp},
		NextWord:   []suggest.Provider{next},
	}, suggestion.WithCacheSize(0))
	_ = eng.Init(context.Background())

	ctx := context.Background()
	if got := eng.Suggest(ctx, types.SuggestionContext{CurrentInput: "w"}); !slices.Equal(got, []string{"word"}) {
		t.Errorf("typing = %v", got)
	}
	if got := eng.Suggest(ctx, types.SuggestionContext{IsAfterSpace: true, PreviousWord: "a"}); !slices.Equal(got, []string{"next"}) {
		t.Errorf("after space = %v", got)
	}
	if _, n, _ := comp.Calls(); n != 1 {
		t.Errorf("completion provider called %d times, want 1", n)
	}
	if _, n, _ := next.Calls(); n != 1 {
		t.Errorf("next-word provider called %d times, want 1", n)
	}
}

func TestEngine_CachesResults(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Candidates: []types.PredictionCandidate{{Word: "cat", Score: 1}}}
	eng := suggestion.New(suggestion.Providers{Completion: []suggest.Provider{p}, Learner: p})
	_ = eng.Init(context.Background())

	ctx := context.Background()
	sc := types.SuggestionContext{CurrentInput: "ca"}
	first := eng.Suggest(ctx, sc)
	first[0] = "mutated"
	second := eng.Suggest(ctx, sc)

	if !slices.Equal(second, []string{"cat"}) {
		t.Errorf("cached result = %v, want [cat]", second)
	}
	if _, n, _ := p.Calls(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}

	if err := eng.Learn(ctx, "cat", ""); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	_ = eng.Suggest(ctx, sc)
	if _, n, _ := p.Calls(); n != 2 {
		t.Errorf("provider called %d times after Learn, want 2", n)
	}
}

func TestEngine_LearnDuringSuggestIsNotCachedStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := userlearn.New()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gate := &mock.Provider{SuggestFunc: func(types.SuggestionContext) []types.PredictionCandidate {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	}}
	eng := suggestion.New(suggestion.Providers{
		Completion: []suggest.Provider{user, gate},
		Learner:    user,
	})
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sc := types.SuggestionContext{CurrentInput: "hel"}
	done := make(chan []string)
	go func() { done <- eng.Suggest(ctx, sc) }()

	// The user provider has already answered; the gate holds the fan-out.
	<-entered
	if err := eng.Learn(ctx, "hello", ""); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	close(release)
	if got := <-done; len(got) != 0 {
		t.Errorf("in-flight Suggest = %v, want empty", got)
	}

	got := eng.Suggest(ctx, sc)
	if !slices.Contains(got, "hello") {
		t.Errorf("Suggest after Learn = %v, want it to contain hello", got)
	}
}

func TestEngine_LearnErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	noLearner := suggestion.New(suggestion.Providers{})
	_ = noLearner.Init(ctx)
	if err := noLearner.Learn(ctx, "word", ""); !errors.Is(err, suggestion.ErrNoLearner) {
		t.Errorf("Learn without learner = %v, want ErrNoLearner", err)
	}

	persist := errors.New("disk full")
	p := &mock.Provider{LearnErr: persist}
	eng := suggestion.New(suggestion.Providers{Learner: p})
	_ = eng.Init(ctx)
	if err := eng.Learn(ctx, "word", "prev"); !errors.Is(err, persist) {
		t.Errorf("Learn = %v, want wrapped %v", err, persist)
	}
	if p.LearnCalls[0] != (mock.LearnCall{Word: "word", Previous: "prev"}) {
		t.Errorf("LearnCalls = %+v", p.LearnCalls)
	}
}

func TestEngine_Refine(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t, []string{"glide", "glider", "gliding"}, nil)
	got := eng.Refine(context.Background(), "glide")
	// "glider" is one edit away and scores as a typo correction.
	want := []string{"glider", "glide", "gliding"}
	if !slices.Equal(got, want) {
		t.Errorf("Refine(glide) = %v, want %v", got, want)
	}
	if got := eng.Refine(context.Background(), ""); got != nil {
		t.Errorf("Refine(\"\") = %v, want nil", got)
	}
}
