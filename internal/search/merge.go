package search

import (
	"regexp"
	"sort"
	"strings"
)

// MergeHits concatenates hit lists, dropping duplicates by identity key
// while preserving first-seen order.
func MergeHits(lists ...[]CodeHit) []CodeHit {
	seen := make(map[string]bool)
	var out []CodeHit
	for _, hits := range lists {
		for _, h := range hits {
			key := h.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, h)
		}
	}
	return out
}

// RankHits orders hits by descending relevance to the phrase. Exact name
// matches dominate, then word-boundary matches in the name, then in the
// content body, then path substrings. The sort is stable so ties keep
// their prior relative order.
func RankHits(hits []CodeHit, phrase string) []CodeHit {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || len(hits) == 0 {
		return hits
	}

	lower := strings.ToLower(phrase)
	wordPat, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return hits
	}

	scored := make([]CodeHit, len(hits))
	copy(scored, hits)
	for i := range scored {
		score := 0
		if strings.ToLower(scored[i].Name) == lower {
			score += 100
		}
		if wordPat.MatchString(scored[i].Name) {
			score += 40
		}
		if wordPat.MatchString(scored[i].Content) {
			score += 30
		}
		if strings.Contains(strings.ToLower(scored[i].File), lower) {
			score += 10
		}
		scored[i].Score = score
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
