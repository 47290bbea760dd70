package plugin

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds the edit distance of a typo suggestion.
const maxSuggestDistance = 2

// Suggest returns the registered name closest to input, if any is close
// enough. Aliases are candidates too but map back to their command's name.
// Subsequence matches win over edit-distance matches.
func (h *Host) Suggest(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	var candidates []string
	owner := make(map[string]string)
	for _, def := range h.Registry().All() {
		for _, name := range append([]string{def.Name()}, def.Aliases()...) {
			if _, seen := owner[name]; seen {
				continue
			}
			owner[name] = def.Name()
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	ranks := fuzzy.RankFindFold(input, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return owner[ranks[0].Target], true
	}

	best, bestDist := "", maxSuggestDistance+1
	for _, name := range candidates {
		if d := fuzzy.LevenshteinDistance(fold(input), fold(name)); d < bestDist {
			best, bestDist = owner[name], d
		}
	}
	return best, best != ""
}
