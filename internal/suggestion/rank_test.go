package suggestion_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/glidekey/internal/suggestion"
	"github.com/MrWong99/glidekey/pkg/types"
)

func TestRankAndFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cands []types.PredictionCandidate
		limit int
		want  []string
	}{
		{
			name:  "empty",
			limit: 3,
			want:  nil,
		},
		{
			name: "weights decide",
			cands: []types.PredictionCandidate{
				{Word: "help", Score: 75, Source: types.SourcePrefixCompletion},
				{Word: "hello", Score: 60, Source: types.SourcePrefixCompletion},
				{Word: "held", Score: 60, Source: types.SourceTypoCorrection},
			},
			limit: 3,
			want:  []string{"held", "help", "hello"},
		},
		{
			name: "group keeps the best weighted candidate",
			cands: []types.PredictionCandidate{
				{Word: "the", Score: 100, Source: types.SourceExactMatch},
				{Word: "then", Score: 95, Source: types.SourcePrefixCompletion},
				{Word: "The", Score: 70, Source: types.SourceTypoCorrection},
			},
			limit: 3,
			want:  []string{"The", "then"},
		},
		{
			name: "ties keep input order",
			cands: []types.PredictionCandidate{
				{Word: "b", Score: 50},
				{Word: "a", Score: 50},
				{Word: "c", Score: 50},
			},
			limit: 3,
			want:  []string{"b", "a", "c"},
		},
		{
			name: "truncates",
			cands: []types.PredictionCandidate{
				{Word: "one", Score: 10},
				{Word: "two", Score: 20},
				{Word: "three", Score: 30},
				{Word: "four", Score: 40},
			},
			limit: 3,
			want:  []string{"four", "three", "two"},
		},
		{
			name:  "non-positive limit",
			cands: []types.PredictionCandidate{{Word: "x", Score: 1}},
			limit: 0,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := suggestion.RankAndFilter(tt.cands, tt.limit)
			if !slices.Equal(got, tt.want) {
				t.Errorf("RankAndFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankAndFilter_Deterministic(t *testing.T) {
	t.Parallel()

	cands := []types.PredictionCandidate{
		{Word: "Dont", Score: 80, Source: types.SourceExactMatch},
		{Word: "don't", Score: 100, Source: types.SourceContraction},
		{Word: "dont", Score: 90, Source: types.SourceUserLearnedExact},
		{Word: "done", Score: 66, Source: types.SourceTypoCorrection},
		{Word: "donut", Score: 60, Source: types.SourcePrefixCompletion},
	}
	first := suggestion.RankAndFilter(cands, 3)
	for range 20 {
		if got := suggestion.RankAndFilter(cands, 3); !slices.Equal(got, first) {
			t.Fatalf("RankAndFilter() = %v, then %v", first, got)
		}
	}

	if len(first) > 3 {
		t.Fatalf("len = %d, want <= 3", len(first))
	}
	seen := map[string]bool{}
	for _, w := range first {
		if seen[strings.ToLower(w)] {
			t.Errorf("duplicate word %q in %v", w, first)
		}
		seen[strings.ToLower(w)] = true
	}
	want := []string{"don't", "dont", "done"}
	if !slices.Equal(first, want) {
		t.Errorf("RankAndFilter() = %v, want %v", first, want)
	}
}
