package search

import (
	"context"

	"interlinked/internal/logging"
)

// CodeSearcher is the code-corpus collaborator. The store owns filtering,
// escalation to vector search, and pagination behind this single call.
type CodeSearcher interface {
	SearchCode(ctx context.Context, query string, limit int) ([]CodeHit, error)
}

// Retriever runs the two-phase retrieval escalation over the code corpus:
// a strict pass with the literal query, then a fuzzy pass over relaxed
// query variants when the strict pass comes up short.
type Retriever struct {
	Searcher CodeSearcher
	Synonyms SynonymTable
}

// fuzzyTrigger is the strict-phase hit count below which the fuzzy phase
// runs: half the requested limit, but at least 3.
func fuzzyTrigger(limit int) int {
	n := limit / 2
	if n < 3 {
		n = 3
	}
	return n
}

// outputCap bounds the merged result: the requested limit, minimum 8.
func outputCap(limit int) int {
	if limit < 8 {
		return 8
	}
	return limit
}

// Retrieve returns ranked hits for the query. A failed collaborator call
// in either phase degrades to zero hits for that call; it never aborts
// the escalation.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) []CodeHit {
	if limit <= 0 {
		limit = 8
	}

	strict, err := r.Searcher.SearchCode(ctx, query, limit)
	if err != nil {
		logging.RetrievalDebug("Strict retrieval failed for %q: %v", query, err)
		strict = nil
	}
	for i := range strict {
		strict[i].Provenance = ProvenanceStrict
	}
	strict = RankHits(strict, query)

	if len(strict) >= fuzzyTrigger(limit) {
		return strict
	}

	logging.Retrieval("Strict phase returned %d hits for %q, escalating to fuzzy", len(strict), query)
	fuzzy := r.fuzzyProbe(ctx, query, limit)

	merged := MergeHits(strict, fuzzy)
	if n := outputCap(limit); len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

// fuzzyProbe walks the variant ladder, one retrieval call per variant,
// accumulating deduplicated hits until the budget is met. The second
// tranche of variants runs only when the first leaves the accumulator
// nearly empty.
func (r *Retriever) fuzzyProbe(ctx context.Context, query string, limit int) []CodeHit {
	variants := r.synonyms().Expand(query)
	budget := limit * 3
	if budget < 24 {
		budget = 24
	}

	all := r.probeVariants(ctx, nil, sliceRange(variants, 0, 18), limit, budget)
	if len(all) < limit/2 {
		all = r.probeVariants(ctx, all, sliceRange(variants, 18, 36), limit, budget)
	}

	if n := outputCap(limit); len(all) > n {
		all = all[:n]
	}
	return markFuzzy(all)
}

func (r *Retriever) probeVariants(ctx context.Context, acc []CodeHit, variants []string, limit, budget int) []CodeHit {
	for _, qv := range variants {
		hs, err := r.Searcher.SearchCode(ctx, qv, limit)
		if err != nil {
			logging.RetrievalDebug("Variant %q failed: %v", qv, err)
			continue
		}
		if len(hs) > 0 {
			acc = MergeHits(acc, hs)
		}
		if len(acc) >= budget {
			break
		}
	}
	return acc
}

func (r *Retriever) synonyms() SynonymTable {
	if r.Synonyms != nil {
		return r.Synonyms
	}
	return DefaultSynonyms()
}

// markFuzzy tags hits as fuzzy-provenance and appends the manual-review
// note to their role text.
func markFuzzy(hits []CodeHit) []CodeHit {
	for i := range hits {
		hits[i].Provenance = ProvenanceFuzzy
		if hits[i].Role != "" {
			hits[i].Role += "  " + FuzzyReviewNote
		} else {
			hits[i].Role = FuzzyReviewNote
		}
	}
	return hits
}

func sliceRange(s []string, lo, hi int) []string {
	if lo > len(s) {
		lo = len(s)
	}
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}
