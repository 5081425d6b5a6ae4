package suggestion

import (
	"slices"
	"strings"

	"github.com/MrWong99/glidekey/pkg/types"
)

// DefaultLimit is the number of words returned by [Engine.Suggest] unless
// [WithLimit] says otherwise.
const DefaultLimit = 3

// RankAndFilter merges candidates from several providers into at most limit
// words.
//
// Candidates are grouped by lowercased word and each group is represented by
// its highest weighted score (the first one wins on equal scores). Groups are
// ordered by weighted score, descending; equal scores keep the order in which
// their word first appeared in cands.
func RankAndFilter(cands []types.PredictionCandidate, limit int) []string {
	if limit <= 0 || len(cands) == 0 {
		return nil
	}

	index := make(map[string]int, len(cands))
	best := make([]types.PredictionCandidate, 0, len(cands))
	for _, c := range cands {
		key := strings.ToLower(c.Word)
		if key == "" {
			continue
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(best)
			best = append(best, c)
			continue
		}
		if c.Weighted() > best[i].Weighted() {
			best[i] = c
		}
	}

	slices.SortStableFunc(best, func(a, b types.PredictionCandidate) int {
		wa, wb := a.Weighted(), b.Weighted()
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		default:
			return 0
		}
	})

	out := make([]string, 0, min(limit, len(best)))
	for _, c := range best {
		if len(out) == limit {
			break
		}
		if slices.Contains(out, c.Word) {
			continue
		}
		out = append(out, c.Word)
	}
	return out
}
